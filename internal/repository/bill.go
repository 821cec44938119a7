package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/gst-bills/constants"
	"github.com/joseph-ayodele/gst-bills/internal/common"
	"github.com/joseph-ayodele/gst-bills/internal/entity"
)

const billsTable = "bills"

var billColumns = []string{
	"id",
	"source",
	"supplier_name",
	"gstin",
	"invoice_number",
	"invoice_date",
	"amount",
	"tax_percent",
	"tax_amount",
	"total_amount",
	"expense_type",
	"extraction_confidence",
	"cgst",
	"sgst",
	"igst",
	"all_tax_rates",
	"created_at",
}

type BillRepository interface {
	Create(ctx context.Context, bill *entity.Bill) (*entity.Bill, error)
	Get(ctx context.Context, id uuid.UUID) (*entity.Bill, error)
	// List returns bills whose invoice date lies in [from, to]; nil bounds are open.
	List(ctx context.Context, from, to *time.Time) ([]*entity.Bill, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type billRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewBillRepository(db *DB, logger *slog.Logger) BillRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &billRepository{
		db:     db,
		logger: logger,
	}
}

func (r *billRepository) Create(ctx context.Context, bill *entity.Bill) (*entity.Bill, error) {
	b := *bill
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	b.CreatedAt = b.CreatedAt.UTC().Truncate(time.Microsecond)

	query, args := entsql.Dialect(r.db.Dialect()).
		Insert(billsTable).
		Columns(billColumns...).
		Values(
			b.ID.String(),
			string(b.Source),
			b.SupplierName,
			b.GSTIN,
			b.InvoiceNumber,
			b.InvoiceDate,
			b.Amount,
			b.TaxPercent,
			b.TaxAmount,
			b.TotalAmount,
			b.ExpenseType,
			string(b.ExtractionConfidence),
			nullable(b.TaxBreakdown.CGST),
			nullable(b.TaxBreakdown.SGST),
			nullable(b.TaxBreakdown.IGST),
			joinRates(b.AllTaxRates),
			b.CreatedAt,
		).
		Query()
	if err := r.db.Driver.Exec(ctx, query, args, nil); err != nil {
		r.logger.Error("failed to insert bill", "bill_id", b.ID, "error", err)
		return nil, common.DatabaseError("insert bill", err)
	}
	r.logger.Info("bill created", "bill_id", b.ID, "supplier", b.SupplierName, "total", b.TotalAmount)
	return &b, nil
}

func (r *billRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Bill, error) {
	bills, err := r.query(ctx, entsql.EQ("id", id.String()))
	if err != nil {
		r.logger.Error("failed to get bill", "bill_id", id, "error", err)
		return nil, err
	}
	if len(bills) == 0 {
		return nil, fmt.Errorf("bill %s: %w", id, common.ErrNotFound)
	}
	return bills[0], nil
}

func (r *billRepository) List(ctx context.Context, from, to *time.Time) ([]*entity.Bill, error) {
	var preds []*entsql.Predicate
	if from != nil {
		preds = append(preds, entsql.GTE("invoice_date", from.Format(time.DateOnly)))
	}
	if to != nil {
		preds = append(preds, entsql.LTE("invoice_date", to.Format(time.DateOnly)))
	}
	bills, err := r.query(ctx, preds...)
	if err != nil {
		r.logger.Error("failed to list bills", "error", err)
		return nil, err
	}
	return bills, nil
}

func (r *billRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query, args := entsql.Dialect(r.db.Dialect()).
		Delete(billsTable).
		Where(entsql.EQ("id", id.String())).
		Query()
	var res sql.Result
	if err := r.db.Driver.Exec(ctx, query, args, &res); err != nil {
		r.logger.Error("failed to delete bill", "bill_id", id, "error", err)
		return common.DatabaseError("delete bill", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return common.DatabaseError("delete bill", err)
	}
	if n == 0 {
		return fmt.Errorf("bill %s: %w", id, common.ErrNotFound)
	}
	r.logger.Info("bill deleted", "bill_id", id)
	return nil
}

func (r *billRepository) query(ctx context.Context, preds ...*entsql.Predicate) ([]*entity.Bill, error) {
	sel := entsql.Dialect(r.db.Dialect()).
		Select(billColumns...).
		From(entsql.Table(billsTable)).
		OrderBy("invoice_date", "created_at")
	if len(preds) > 0 {
		sel = sel.Where(entsql.And(preds...))
	}
	query, args := sel.Query()

	var rows entsql.Rows
	if err := r.db.Driver.Query(ctx, query, args, &rows); err != nil {
		return nil, common.DatabaseError("query bills", err)
	}
	defer rows.Close()

	var bills []*entity.Bill
	for rows.Next() {
		b, err := scanBill(&rows)
		if err != nil {
			return nil, common.DatabaseError("scan bill", err)
		}
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, common.DatabaseError("iterate bills", err)
	}
	return bills, nil
}

func scanBill(rows *entsql.Rows) (*entity.Bill, error) {
	var (
		b                entity.Bill
		id, source, conf string
		rates            string
		cgst, sgst, igst sql.NullFloat64
		created          dbTime
	)
	err := rows.Scan(
		&id,
		&source,
		&b.SupplierName,
		&b.GSTIN,
		&b.InvoiceNumber,
		&b.InvoiceDate,
		&b.Amount,
		&b.TaxPercent,
		&b.TaxAmount,
		&b.TotalAmount,
		&b.ExpenseType,
		&conf,
		&cgst,
		&sgst,
		&igst,
		&rates,
		&created,
	)
	if err != nil {
		return nil, err
	}
	if b.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	b.Source = constants.SourceKind(source)
	b.ExtractionConfidence = constants.ParseConfidence(conf)
	b.TaxBreakdown = entity.TaxBreakdown{
		CGST: fromNullable(cgst),
		SGST: fromNullable(sgst),
		IGST: fromNullable(igst),
	}
	b.AllTaxRates = splitRates(rates)
	b.CreatedAt = time.Time(created)
	return &b, nil
}

func nullable(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func fromNullable(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

// all_tax_rates is stored as a comma separated list, e.g. "5,18".
func joinRates(rates []float64) string {
	parts := make([]string, len(rates))
	for i, r := range rates {
		parts[i] = strconv.FormatFloat(r, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

func splitRates(s string) []float64 {
	if s == "" {
		return nil
	}
	var out []float64
	for _, p := range strings.Split(s, ",") {
		if v, err := strconv.ParseFloat(strings.TrimSpace(p), 64); err == nil {
			out = append(out, v)
		}
	}
	return out
}

// dbTime scans timestamps from drivers that hand back either time.Time or text.
type dbTime time.Time

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	time.DateTime,
	"2006-01-02 15:04:05.999999999 -0700 MST",
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*t = dbTime(v)
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		*t = dbTime(time.Time{})
		return nil
	}
	return fmt.Errorf("unsupported timestamp type %T", src)
}

func (t *dbTime) parse(s string) error {
	// Go's time.Time.String form, which some drivers store verbatim.
	if i := strings.Index(s, " m="); i > 0 {
		s = s[:i]
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			*t = dbTime(ts)
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}
