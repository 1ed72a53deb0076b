package domain

type Employee struct {
	ID         int64   `db:"id" json:"id"`
	Name       string  `db:"name" json:"name"`
	Position   string  `db:"position" json:"position"`
	BaseSalary float64 `db:"base_salary" json:"baseSalary"`
	Phone      *string `db:"phone" json:"phone,omitempty"`
	HiredAt    *string `db:"hired_at" json:"hiredAt,omitempty"`
	CreatedAt  string  `db:"created_at" json:"createdAt"`
}

// Advance is a salary advance granted to an employee, settled against the
// next payslip of its period.
type Advance struct {
	ID         int64   `db:"id" json:"id"`
	EmployeeID int64   `db:"employee_id" json:"employee"`
	Amount     float64 `db:"amount" json:"amount"`
	Note       string  `db:"note" json:"note,omitempty"`
	GrantedAt  string  `db:"granted_at" json:"grantedAt"`
}

// Payslip nets the advances granted during its period (YYYY-MM) against the
// employee's base salary.
type Payslip struct {
	ID            int64   `db:"id" json:"id"`
	EmployeeID    int64   `db:"employee_id" json:"employee"`
	Period        string  `db:"period" json:"period"`
	GrossSalary   float64 `db:"gross_salary" json:"grossSalary"`
	AdvancesTotal float64 `db:"advances_total" json:"advancesTotal"`
	NetPay        float64 `db:"net_pay" json:"netPay"`
	CreatedAt     string  `db:"created_at" json:"createdAt"`
}
