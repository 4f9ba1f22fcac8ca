// README: Batch jobs that price the live order table and rebuild the monthly and customer rollups.
package report

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/yen1506/linebot-coffee/internal/modules/order"
	"github.com/yen1506/linebot-coffee/internal/sheet"
)

type Tables struct {
	Live      sheet.Table
	Prices    sheet.Table
	Monthly   sheet.Table
	Customers sheet.Table
}

type Service struct {
	tables Tables
	log    *zap.Logger
}

func NewService(tables Tables, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{tables: tables, log: log}
}

// OpenTables acquires the price and rollup tables next to an existing live table.
func OpenTables(ctx context.Context, wb sheet.Workbook, live sheet.Table, prices, monthly, customers string) (Tables, error) {
	t := Tables{Live: live}
	var err error
	if t.Prices, err = wb.Table(ctx, prices, PriceColumns); err != nil {
		return Tables{}, err
	}
	if t.Monthly, err = wb.Table(ctx, monthly, MonthlyColumns); err != nil {
		return Tables{}, err
	}
	if t.Customers, err = wb.Table(ctx, customers, CustomerColumns); err != nil {
		return Tables{}, err
	}
	return t, nil
}

// RunAll runs every job; a failing job is logged and does not stop the others.
func (s *Service) RunAll(ctx context.Context) {
	s.run(ctx, "merge_prices", s.MergePrices)
	s.run(ctx, "monthly_summary", s.MonthlySummary)
	s.run(ctx, "customer_summary", s.CustomerSummary)
}

func (s *Service) run(ctx context.Context, name string, job func(context.Context) (int, error)) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("report job panic", zap.String("job", name), zap.Any("panic", r))
		}
	}()
	n, err := job(ctx)
	if err != nil {
		s.log.Error("report job failed", zap.String("job", name), zap.Error(err))
		return
	}
	s.log.Info("report job done", zap.String("job", name), zap.Int("rows", n), zap.Duration("took", time.Since(start)))
}

// MergePrices joins every live row to the price table on (product, variant)
// and rewrites the unit price and line total columns. The read and the
// rewrite run under the live table's write lock, so orders placed, deleted
// or modified meanwhile wait for the rewrite instead of being overwritten.
func (s *Service) MergePrices(ctx context.Context) (int, error) {
	prices, err := s.loadPrices(ctx)
	if err != nil {
		return 0, err
	}
	var n int
	err = sheet.Exclusive(ctx, s.tables.Live, func(ctx context.Context, live sheet.Table) error {
		var err error
		n, err = s.mergePrices(ctx, live, prices)
		return err
	})
	return n, err
}

func (s *Service) mergePrices(ctx context.Context, live sheet.Table, prices map[priceKey]decimal.Decimal) (int, error) {
	rows, err := live.Rows(ctx)
	if err != nil {
		return 0, fmt.Errorf("read orders: %w", err)
	}
	if len(rows) <= 1 {
		return 0, nil
	}

	header := append([]string(nil), rows[0]...)
	idx := sheet.ColumnIndex(header)
	productCol, okP := idx[order.Columns[order.ColProduct]]
	variantCol, okV := idx[order.Columns[order.ColVariant]]
	qtyCol, okQ := idx[order.Columns[order.ColQuantity]]
	if !okP || !okV || !okQ {
		return 0, fmt.Errorf("order table %q lacks product, variant or quantity column", live.Name())
	}
	unitCol := columnOrAppend(&header, idx, order.Columns[order.ColUnitPrice])
	totalCol := columnOrAppend(&header, idx, order.Columns[order.ColLineTotal])

	out := make([][]string, 0, len(rows))
	out = append(out, header)
	for _, r := range rows[1:] {
		row := sheet.Pad(append([]string(nil), r...), len(header))
		row[unitCol], row[totalCol] = "", ""
		price, ok := prices[priceKey{strings.TrimSpace(row[productCol]), strings.TrimSpace(row[variantCol])}]
		if ok {
			row[unitCol] = price.String()
			if qty, err := strconv.Atoi(strings.TrimSpace(row[qtyCol])); err == nil {
				row[totalCol] = price.Mul(decimal.NewFromInt(int64(qty))).String()
			}
		}
		out = append(out, row)
	}

	if err := live.Replace(ctx, out); err != nil {
		return 0, fmt.Errorf("rewrite orders: %w", err)
	}
	return len(out) - 1, nil
}

// MonthlySummary groups orders by month, product, variant and unit price.
func (s *Service) MonthlySummary(ctx context.Context) (int, error) {
	rows, err := s.tables.Live.Rows(ctx)
	if err != nil {
		return 0, fmt.Errorf("read orders: %w", err)
	}
	if len(rows) <= 1 {
		return 0, nil
	}
	c := newColumns(rows[0])

	type agg struct {
		qty   int64
		total decimal.Decimal
	}
	groups := make(map[monthlyKey]*agg)
	for _, r := range rows[1:] {
		k := monthlyKey{
			month:     monthOf(c.get(r, order.ColCreatedAt), c.get(r, order.ColPickupDate)),
			product:   c.get(r, order.ColProduct),
			variant:   c.get(r, order.ColVariant),
			unitPrice: c.get(r, order.ColUnitPrice),
		}
		g, ok := groups[k]
		if !ok {
			g = &agg{}
			groups[k] = g
		}
		if n, err := strconv.Atoi(c.get(r, order.ColQuantity)); err == nil {
			g.qty += int64(n)
		}
		g.total = g.total.Add(amount(c.get(r, order.ColLineTotal)))
	}

	keys := make([]monthlyKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.month != b.month {
			return a.month < b.month
		}
		if a.product != b.product {
			return a.product < b.product
		}
		if a.variant != b.variant {
			return a.variant < b.variant
		}
		return a.unitPrice < b.unitPrice
	})

	out := [][]string{MonthlyColumns}
	for _, k := range keys {
		g := groups[k]
		out = append(out, []string{k.month, k.product, k.variant, k.unitPrice, strconv.FormatInt(g.qty, 10), g.total.String()})
	}
	if err := s.tables.Monthly.Replace(ctx, out); err != nil {
		return 0, fmt.Errorf("rewrite monthly summary: %w", err)
	}
	return len(keys), nil
}

// CustomerSummary counts orders and sums line totals per customer and product.
func (s *Service) CustomerSummary(ctx context.Context) (int, error) {
	rows, err := s.tables.Live.Rows(ctx)
	if err != nil {
		return 0, fmt.Errorf("read orders: %w", err)
	}
	if len(rows) <= 1 {
		return 0, nil
	}
	c := newColumns(rows[0])

	type agg struct {
		count int
		total decimal.Decimal
	}
	groups := make(map[customerKey]*agg)
	for _, r := range rows[1:] {
		k := customerKey{
			name:    c.get(r, order.ColName),
			product: c.get(r, order.ColProduct),
			variant: c.get(r, order.ColVariant),
		}
		g, ok := groups[k]
		if !ok {
			g = &agg{}
			groups[k] = g
		}
		g.count++
		g.total = g.total.Add(amount(c.get(r, order.ColLineTotal)))
	}

	keys := make([]customerKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.name != b.name {
			return a.name < b.name
		}
		if a.product != b.product {
			return a.product < b.product
		}
		return a.variant < b.variant
	})

	out := [][]string{CustomerColumns}
	for _, k := range keys {
		g := groups[k]
		out = append(out, []string{k.name, k.product, k.variant, strconv.Itoa(g.count), g.total.String()})
	}
	if err := s.tables.Customers.Replace(ctx, out); err != nil {
		return 0, fmt.Errorf("rewrite customer summary: %w", err)
	}
	return len(keys), nil
}

func (s *Service) loadPrices(ctx context.Context) (map[priceKey]decimal.Decimal, error) {
	rows, err := s.tables.Prices.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("read prices: %w", err)
	}
	prices := make(map[priceKey]decimal.Decimal)
	for i, r := range rows {
		if i == 0 {
			continue
		}
		r = sheet.Pad(r, len(PriceColumns))
		p, err := decimal.NewFromString(strings.TrimSpace(r[2]))
		if err != nil {
			continue
		}
		k := priceKey{strings.TrimSpace(r[0]), strings.TrimSpace(r[1])}
		if _, dup := prices[k]; !dup {
			prices[k] = p
		}
	}
	return prices, nil
}

// columns resolves order columns by header name so reordered sheets still work.
type columns struct {
	idx map[string]int
}

func newColumns(header []string) columns {
	return columns{idx: sheet.ColumnIndex(header)}
}

func (c columns) get(row []string, col int) string {
	i, ok := c.idx[order.Columns[col]]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func columnOrAppend(header *[]string, idx map[string]int, name string) int {
	if i, ok := idx[name]; ok {
		return i
	}
	*header = append(*header, name)
	idx[name] = len(*header) - 1
	return len(*header) - 1
}

// monthOf derives YYYY-MM from the creation time, falling back to the pickup date.
func monthOf(createdAt, pickupDate string) string {
	if f := strings.Fields(createdAt); len(f) > 0 {
		if t, err := time.Parse(order.DateLayout, f[0]); err == nil {
			return t.Format("2006-01")
		}
	}
	if t, err := time.Parse(order.DateLayout, order.NormalizeDate(pickupDate)); err == nil {
		return t.Format("2006-01")
	}
	return unknownMonth
}

func amount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
