// Command import-remittance ingests one payment remittance file (JSON) and
// matches its detail lines against invoices.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"vendor-pipeline/internal/config"
	"vendor-pipeline/internal/core"
	"vendor-pipeline/internal/db"
)

type remittanceDoc struct {
	PaymentNumber string          `json:"payment_number"`
	PaymentDate   time.Time       `json:"payment_date"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Lines         []struct {
		InvoiceRef    string          `json:"invoice_ref"`
		InvoiceAmount decimal.Decimal `json:"invoice_amount"`
		NetAmountPaid decimal.Decimal `json:"net_amount_paid"`
	} `json:"lines"`
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		log.Fatal("Usage: import-remittance <file.json>")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	raw, err := os.ReadFile(os.Args[1])
	if err != nil {
		log.Fatalf("read %s: %v", os.Args[1], err)
	}
	var doc remittanceDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		log.Fatalf("parse %s: %v", os.Args[1], err)
	}

	file := core.RemittanceFile{
		PaymentNumber: core.PaymentNumber(doc.PaymentNumber),
		PaymentDate:   doc.PaymentDate,
		Amount:        doc.Amount,
		Currency:      doc.Currency,
		Raw:           raw,
	}
	for _, l := range doc.Lines {
		file.Lines = append(file.Lines, core.RemittanceFileLine{
			RawInvoiceRef: l.InvoiceRef,
			InvoiceAmount: l.InvoiceAmount,
			NetAmountPaid: l.NetAmountPaid,
		})
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	result, err := core.NewRemittanceService(pool, cfg.Seller.InvoicePrefix).Import(ctx, file)
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	if result.AlreadyImported {
		fmt.Fprintln(os.Stderr, "batch was already imported; stored outcome shown")
	}
}
