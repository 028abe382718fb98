package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/itsfahadusman/pharmacy-pos-advanced/internal/domain"
	"github.com/itsfahadusman/pharmacy-pos-advanced/internal/store"
)

var inventoryCSVHeader = []string{
	"ID", "Name", "Generic Name", "Brand", "Category", "Quantity", "Reorder Level",
	"Cost Price", "Selling Price", "Expiry Date", "Barcode", "Batch Number", "Rack Location",
}

var salesCSVHeader = []string{
	"Invoice", "Medicine", "Customer", "Quantity", "Unit Price",
	"Discount", "Tax", "Total", "Payment Method", "Date",
}

// SampleMedicinesCSV is the template offered to operators before a bulk
// import. Column order matches what ImportMedicines expects.
const SampleMedicinesCSV = `name,generic_name,brand,category,quantity,reorder_level,cost_price,price,expiry_date,barcode,batch_number,rack_location,description,requires_prescription
Paracetamol 500mg,Acetaminophen,Calpol,Painkiller,100,20,5.50,10.00,2027-12-31,8901234567890,BATCH001,A-1-5,For fever and pain relief,0
Amoxicillin 250mg,Amoxicillin,Novamox,Antibiotic,50,15,15.00,25.00,2027-06-30,8901234567891,BATCH002,A-2-3,Broad spectrum antibiotic,1
Cetirizine 10mg,Cetirizine,Zyrtec,Antihistamine,80,20,3.00,8.00,2027-03-15,8901234567892,BATCH003,B-1-2,For allergies,0
`

// ImportMedicines reads CSV rows and creates a medicine per valid row. Bad
// rows are reported individually and never block the rest; all valid rows
// are committed as a single batch at the end. Row numbers in errors count
// the header as row 1.
func (s *Service) ImportMedicines(ctx context.Context, r io.Reader) (domain.ImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return domain.ImportResult{}, nil
	}
	if err != nil {
		return domain.ImportResult{}, fmt.Errorf("csv header: %w", store.ErrInvalidInput)
	}
	columns := indexColumns(header)

	var result domain.ImportResult
	var valid []domain.Medicine
	seenBarcodes := map[string]bool{}
	rowNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			result.Errors = append(result.Errors, domain.ImportRowError{Row: rowNum, Message: "malformed csv row"})
			continue
		}

		med, rowErr := parseMedicineRow(columns, record)
		if rowErr == "" && med.Barcode != "" {
			if seenBarcodes[med.Barcode] {
				rowErr = fmt.Sprintf("duplicate barcode %s in file", med.Barcode)
			} else if _, err := s.repo.GetMedicineByBarcode(ctx, med.Barcode); err == nil {
				rowErr = fmt.Sprintf("barcode %s already exists", med.Barcode)
			} else if !errors.Is(err, store.ErrNotFound) {
				return domain.ImportResult{}, err
			}
		}
		if rowErr != "" {
			result.Errors = append(result.Errors, domain.ImportRowError{Row: rowNum, Message: rowErr})
			continue
		}

		if med.Barcode != "" {
			seenBarcodes[med.Barcode] = true
		}
		valid = append(valid, med)
	}

	if len(valid) > 0 {
		created, err := s.repo.CreateMedicines(ctx, valid)
		if err != nil {
			return domain.ImportResult{}, err
		}
		result.SuccessCount = len(created)
		s.logActivity(ctx, "medicines_import", fmt.Sprintf("imported=%d,errors=%d", result.SuccessCount, len(result.Errors)))
		s.invalidateStats(ctx)
	}
	result.ErrorCount = len(result.Errors)
	return result, nil
}

func indexColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		key = strings.ReplaceAll(key, " ", "_")
		columns[key] = i
	}
	return columns
}

func field(columns map[string]int, record []string, name string) string {
	idx, ok := columns[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func parseMedicineRow(columns map[string]int, record []string) (domain.Medicine, string) {
	med := domain.Medicine{
		Name:         field(columns, record, "name"),
		GenericName:  field(columns, record, "generic_name"),
		Brand:        field(columns, record, "brand"),
		Category:     field(columns, record, "category"),
		ExpiryDate:   field(columns, record, "expiry_date"),
		Barcode:      field(columns, record, "barcode"),
		BatchNumber:  field(columns, record, "batch_number"),
		RackLocation: field(columns, record, "rack_location"),
		Description:  field(columns, record, "description"),
		ReorderLevel: 10,
	}
	switch strings.ToLower(field(columns, record, "requires_prescription")) {
	case "1", "true", "yes":
		med.RequiresPrescription = true
	}
	if med.Name == "" {
		return med, "name is required"
	}
	if med.Brand == "" {
		return med, "brand is required"
	}

	if raw := field(columns, record, "quantity"); raw != "" {
		qty, err := strconv.Atoi(raw)
		if err != nil || qty < 0 {
			return med, fmt.Sprintf("invalid quantity %q", raw)
		}
		med.Quantity = qty
	}
	if raw := field(columns, record, "reorder_level"); raw != "" {
		level, err := strconv.Atoi(raw)
		if err != nil || level < 0 {
			return med, fmt.Sprintf("invalid reorder level %q", raw)
		}
		med.ReorderLevel = level
	}
	if raw := field(columns, record, "cost_price"); raw != "" {
		cents, err := priceToCents(raw)
		if err != nil {
			return med, fmt.Sprintf("invalid cost price %q", raw)
		}
		med.CostCents = cents
	}

	raw := field(columns, record, "price")
	if raw == "" {
		raw = field(columns, record, "selling_price")
	}
	if raw == "" {
		return med, "price is required"
	}
	cents, err := priceToCents(raw)
	if err != nil || cents < 1 {
		return med, fmt.Sprintf("invalid price %q", raw)
	}
	med.PriceCents = cents

	if med.ExpiryDate != "" {
		if err := validateMedicine(med); err != nil {
			return med, fmt.Sprintf("invalid expiry date %q", med.ExpiryDate)
		}
	}
	return med, ""
}

func (s *Service) ExportInventoryCSV(ctx context.Context) ([]byte, error) {
	medicines, err := s.repo.ListMedicines(ctx, domain.MedicineFilter{SortBy: "name"})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(inventoryCSVHeader); err != nil {
		return nil, err
	}
	for _, m := range medicines {
		record := []string{
			strconv.FormatInt(m.ID, 10), m.Name, m.GenericName, m.Brand, m.Category,
			strconv.Itoa(m.Quantity), strconv.Itoa(m.ReorderLevel),
			centsToPrice(m.CostCents), centsToPrice(m.PriceCents),
			m.ExpiryDate, m.Barcode, m.BatchNumber, m.RackLocation,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	s.logActivity(ctx, "inventory_export", fmt.Sprintf("rows=%d", len(medicines)))
	return buf.Bytes(), nil
}

func (s *Service) ExportSalesCSV(ctx context.Context, startDate string, endDate string) ([]byte, error) {
	from, to, err := parseDateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	sales, err := s.repo.ListSalesByDateRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(salesCSVHeader); err != nil {
		return nil, err
	}
	for _, sale := range sales {
		customer := sale.CustomerName
		if customer == "" {
			customer = "Walk-in"
		}
		record := []string{
			sale.InvoiceNumber, sale.MedicineName, customer,
			strconv.Itoa(sale.Quantity), centsToPrice(sale.UnitCents),
			strconv.FormatFloat(sale.DiscountPercent, 'f', -1, 64),
			centsToPrice(sale.TaxCents), centsToPrice(sale.TotalCents),
			sale.PaymentMethod, sale.SaleDate.UTC().Format("2006-01-02 15:04:05"),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	s.logActivity(ctx, "sales_export", fmt.Sprintf("rows=%d", len(sales)))
	return buf.Bytes(), nil
}

func priceToCents(raw string) (int64, error) {
	val, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(val) || math.IsInf(val, 0) || val < 0 {
		return 0, fmt.Errorf("price %q: %w", raw, store.ErrInvalidInput)
	}
	return int64(math.Round(val * 100)), nil
}

func centsToPrice(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
