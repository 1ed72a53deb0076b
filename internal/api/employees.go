package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"etshd/backoffice/domain"
)

type employeeRequest struct {
	Name       string  `json:"name" validate:"required"`
	Position   string  `json:"position"`
	BaseSalary float64 `json:"baseSalary" validate:"gte=0"`
	Phone      *string `json:"phone"`
	HiredAt    *string `json:"hiredAt"`
}

func (h *Handler) listEmployees(w http.ResponseWriter, r *http.Request) {
	employees := []domain.Employee{}
	if err := h.db.Select(&employees, `SELECT * FROM employees ORDER BY name`); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list employees")
		return
	}
	respondJSON(w, http.StatusOK, employees)
}

func (h *Handler) getEmployeeByID(w http.ResponseWriter, r *http.Request) (domain.Employee, bool) {
	var employee domain.Employee
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid employee id")
		return employee, false
	}
	if err := h.db.Get(&employee, `SELECT * FROM employees WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "employee not found")
			return employee, false
		}
		respondError(w, http.StatusInternalServerError, "unable to load employee")
		return employee, false
	}
	return employee, true
}

func (h *Handler) getEmployee(w http.ResponseWriter, r *http.Request) {
	employee, ok := h.getEmployeeByID(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, employee)
}

func (h *Handler) createEmployee(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fields := checkStruct(req); fields != nil {
		respondFieldErrors(w, fields)
		return
	}
	res, err := h.db.Exec(`INSERT INTO employees (name, position, base_salary, phone, hired_at) VALUES (?, ?, ?, ?, ?)`,
		req.Name, req.Position, req.BaseSalary, req.Phone, req.HiredAt)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to create employee")
		return
	}
	id, _ := res.LastInsertId()
	var employee domain.Employee
	if err := h.db.Get(&employee, `SELECT * FROM employees WHERE id = ?`, id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load employee")
		return
	}
	respondJSON(w, http.StatusCreated, employee)
}

func (h *Handler) updateEmployee(w http.ResponseWriter, r *http.Request) {
	employee, ok := h.getEmployeeByID(w, r)
	if !ok {
		return
	}
	var req employeeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fields := checkStruct(req); fields != nil {
		respondFieldErrors(w, fields)
		return
	}
	if _, err := h.db.Exec(`UPDATE employees SET name = ?, position = ?, base_salary = ?, phone = ?, hired_at = ? WHERE id = ?`,
		req.Name, req.Position, req.BaseSalary, req.Phone, req.HiredAt, employee.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to update employee")
		return
	}
	if err := h.db.Get(&employee, `SELECT * FROM employees WHERE id = ?`, employee.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load employee")
		return
	}
	respondJSON(w, http.StatusOK, employee)
}

func (h *Handler) deleteEmployee(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	employee, ok := h.getEmployeeByID(w, r)
	if !ok {
		return
	}
	tx, err := h.db.Beginx()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM advances WHERE employee_id = ?`, employee.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to delete advances")
		return
	}
	if _, err := tx.Exec(`DELETE FROM payslips WHERE employee_id = ?`, employee.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to delete payslips")
		return
	}
	if _, err := tx.Exec(`DELETE FROM employees WHERE id = ?`, employee.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to delete employee")
		return
	}
	if err := tx.Commit(); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to finalize")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Advances

type advanceRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
	Note   string  `json:"note" validate:"max=255"`
}

func (h *Handler) listAdvances(w http.ResponseWriter, r *http.Request) {
	employee, ok := h.getEmployeeByID(w, r)
	if !ok {
		return
	}
	advances := []domain.Advance{}
	if err := h.db.Select(&advances, `SELECT * FROM advances WHERE employee_id = ? ORDER BY granted_at DESC`, employee.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list advances")
		return
	}
	respondJSON(w, http.StatusOK, advances)
}

func (h *Handler) createAdvance(w http.ResponseWriter, r *http.Request) {
	employee, ok := h.getEmployeeByID(w, r)
	if !ok {
		return
	}
	var req advanceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fields := checkStruct(req); fields != nil {
		respondFieldErrors(w, fields)
		return
	}
	res, err := h.db.Exec(`INSERT INTO advances (employee_id, amount, note) VALUES (?, ?, ?)`,
		employee.ID, req.Amount, req.Note)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to record advance")
		return
	}
	id, _ := res.LastInsertId()
	var advance domain.Advance
	if err := h.db.Get(&advance, `SELECT * FROM advances WHERE id = ?`, id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load advance")
		return
	}
	respondJSON(w, http.StatusCreated, advance)
}

// Payslips

type payslipRequest struct {
	Period string `json:"period" validate:"required,datetime=2006-01"`
}

// createPayslip generates the payslip for a period (YYYY-MM): base salary
// minus the advances granted during that period.
func (h *Handler) createPayslip(w http.ResponseWriter, r *http.Request) {
	employee, ok := h.getEmployeeByID(w, r)
	if !ok {
		return
	}
	var req payslipRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fields := checkStruct(req); fields != nil {
		respondFieldErrors(w, fields)
		return
	}

	var advancesTotal float64
	if err := h.db.Get(&advancesTotal,
		`SELECT COALESCE(SUM(amount), 0) FROM advances WHERE employee_id = ? AND strftime('%Y-%m', granted_at) = ?`,
		employee.ID, req.Period); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to total advances")
		return
	}

	netPay := employee.BaseSalary - advancesTotal
	res, err := h.db.Exec(`INSERT INTO payslips (employee_id, period, gross_salary, advances_total, net_pay) VALUES (?, ?, ?, ?, ?)`,
		employee.ID, req.Period, employee.BaseSalary, advancesTotal, netPay)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") || strings.Contains(err.Error(), "unique") {
			respondError(w, http.StatusConflict, "payslip already exists for this period")
		} else {
			respondError(w, http.StatusInternalServerError, "unable to create payslip")
		}
		return
	}
	id, _ := res.LastInsertId()
	var payslip domain.Payslip
	if err := h.db.Get(&payslip, `SELECT * FROM payslips WHERE id = ?`, id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load payslip")
		return
	}
	respondJSON(w, http.StatusCreated, payslip)
}

func (h *Handler) listPayslips(w http.ResponseWriter, r *http.Request) {
	employee, ok := h.getEmployeeByID(w, r)
	if !ok {
		return
	}
	payslips := []domain.Payslip{}
	if err := h.db.Select(&payslips, `SELECT * FROM payslips WHERE employee_id = ? ORDER BY period DESC`, employee.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list payslips")
		return
	}
	respondJSON(w, http.StatusOK, payslips)
}
