package seed

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// LoadProducts ingests the CSV catalog (name, price, cost_price, stock) into
// the products table, skipping names already present. Missing file is not an
// error; the catalog is optional bootstrap data.
func LoadProducts(db *sqlx.DB, csvPath string, log *logrus.Logger) {
	file, err := os.Open(csvPath)
	if err != nil {
		log.WithField("path", csvPath).Infof("no product catalog to seed: %v", err)
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// Skip header
	if _, err := reader.Read(); err != nil {
		log.Errorf("unable to read product catalog header: %v", err)
		return
	}

	tx, err := db.Beginx()
	if err != nil {
		log.Errorf("unable to start product seed transaction: %v", err)
		return
	}
	stmt, err := tx.Preparex(`INSERT INTO products (name, price, cost_price, stock)
        SELECT ?, ?, ?, ? WHERE NOT EXISTS (SELECT 1 FROM products WHERE name = ?)`)
	if err != nil {
		log.Errorf("unable to prepare product insert: %v", err)
		_ = tx.Rollback()
		return
	}
	defer stmt.Close()

	count := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil || len(record) < 4 {
			continue
		}
		price, err1 := strconv.ParseFloat(record[1], 64)
		cost, err2 := strconv.ParseFloat(record[2], 64)
		stock, err3 := strconv.ParseInt(record[3], 10, 64)
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		if _, err := stmt.Exec(record[0], price, cost, stock, record[0]); err != nil {
			log.Errorf("unable to insert product %q: %v", record[0], err)
			continue
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		log.Errorf("unable to commit product seed: %v", err)
		return
	}
	log.WithField("count", count).Info("product catalog seeded")
}
