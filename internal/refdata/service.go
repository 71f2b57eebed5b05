package refdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/grupomeridio/pricedesk-backend/internal/discount"
	"github.com/grupomeridio/pricedesk-backend/pkg/db/models"
	"github.com/grupomeridio/pricedesk-backend/pkg/enums"
	pkgerrors "github.com/grupomeridio/pricedesk-backend/pkg/errors"
	"github.com/grupomeridio/pricedesk-backend/pkg/metrics"
	"github.com/grupomeridio/pricedesk-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes reference data reads and the CSV import pipeline that
// keeps the tables in sync with the commercial back office exports.
type Service interface {
	ImportClients(ctx context.Context, src io.Reader) (*ImportSummary, error)
	ImportProducts(ctx context.Context, src io.Reader) (*ImportSummary, error)
	ImportRules(ctx context.Context, src io.Reader) (*ImportSummary, error)

	GetClient(ctx context.Context, code string) (*models.Client, error)
	ListClients(ctx context.Context, params pagination.Params, filters ClientFilters) (*ClientList, error)
	GetProduct(ctx context.Context, code string) (*models.Product, error)
	ListProducts(ctx context.Context, params pagination.Params, filters ProductFilters) (*ProductList, error)
	ListRuleIssues(ctx context.Context) ([]discount.RuleSetIssue, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	metrics *metrics.DecisionMetrics
}

// NewService builds a reference data service with the required dependencies.
func NewService(repo Repository, tx txRunner, decisionMetrics *metrics.DecisionMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("refdata repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		metrics: decisionMetrics,
	}, nil
}

func (s *service) ImportClients(ctx context.Context, src io.Reader) (*ImportSummary, error) {
	rows, header, err := readImportFile(src, []string{"code", "name", "network", "segment", "supervisor_code"})
	if err != nil {
		return nil, err
	}

	summary := &ImportSummary{}
	var clients []models.Client
	for _, row := range rows {
		summary.Rows++
		client, problem := buildClientRow(header, row.fields)
		if problem != "" {
			summary.Skipped++
			summary.Issues = append(summary.Issues, RowIssue{Line: row.line, Problem: problem})
			continue
		}
		clients = append(clients, client)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).UpsertClients(ctx, clients)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist imported clients")
	}
	summary.Imported = len(clients)
	s.metrics.AddImportRows("clients", "imported", summary.Imported)
	s.metrics.AddImportRows("clients", "skipped", summary.Skipped)
	return summary, nil
}

func (s *service) ImportProducts(ctx context.Context, src io.Reader) (*ImportSummary, error) {
	rows, header, err := readImportFile(src, []string{"code", "name"})
	if err != nil {
		return nil, err
	}

	summary := &ImportSummary{}
	var products []models.Product
	for _, row := range rows {
		summary.Rows++
		product, problem := buildProductRow(header, row.fields)
		if problem != "" {
			summary.Skipped++
			summary.Issues = append(summary.Issues, RowIssue{Line: row.line, Problem: problem})
			continue
		}
		products = append(products, product)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).UpsertProducts(ctx, products)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist imported products")
	}
	summary.Imported = len(products)
	s.metrics.AddImportRows("products", "imported", summary.Imported)
	s.metrics.AddImportRows("products", "skipped", summary.Skipped)
	return summary, nil
}

// ImportRules replaces the discount rule table with the uploaded snapshot.
// Inert rows and equal-scope duplicates are skipped and reported so the
// request-time resolver never has to break a tie.
func (s *service) ImportRules(ctx context.Context, src io.Reader) (*ImportSummary, error) {
	rows, header, err := readImportFile(src, []string{"product_code", "percent"})
	if err != nil {
		return nil, err
	}

	summary := &ImportSummary{}
	var rules []models.DiscountRule
	lineByID := map[string]int{}
	for _, row := range rows {
		summary.Rows++
		rule, problem := buildRuleRow(header, row.fields)
		if problem != "" {
			summary.Skipped++
			summary.Issues = append(summary.Issues, RowIssue{Line: row.line, Problem: problem})
			continue
		}
		rules = append(rules, rule)
		lineByID[rule.ID.String()] = row.line
	}

	clean := rules[:0]
	flagged := map[string]string{}
	for _, issue := range discount.ValidateRuleSet(rules) {
		flagged[issue.RuleID] = issue.Problem
	}
	for _, rule := range rules {
		if problem, bad := flagged[rule.ID.String()]; bad {
			summary.Skipped++
			summary.Issues = append(summary.Issues, RowIssue{Line: lineByID[rule.ID.String()], Problem: problem})
			continue
		}
		clean = append(clean, rule)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).ReplaceRules(ctx, clean)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist imported rules")
	}
	summary.Imported = len(clean)
	s.metrics.AddImportRows("discount_rules", "imported", summary.Imported)
	s.metrics.AddImportRows("discount_rules", "skipped", summary.Skipped)
	return summary, nil
}

func (s *service) GetClient(ctx context.Context, code string) (*models.Client, error) {
	client, err := s.repo.FindClientByCode(ctx, code)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "client not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load client")
	}
	return client, nil
}

func (s *service) ListClients(ctx context.Context, params pagination.Params, filters ClientFilters) (*ClientList, error) {
	list, err := s.repo.ListClients(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list clients")
	}
	return list, nil
}

func (s *service) GetProduct(ctx context.Context, code string) (*models.Product, error) {
	product, err := s.repo.FindProductByCode(ctx, code)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) ListProducts(ctx context.Context, params pagination.Params, filters ProductFilters) (*ProductList, error) {
	list, err := s.repo.ListProducts(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return list, nil
}

func (s *service) ListRuleIssues(ctx context.Context) ([]discount.RuleSetIssue, error) {
	rules, err := s.repo.ListRules(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list rules")
	}
	return discount.ValidateRuleSet(rules), nil
}

type importRow struct {
	line   int
	fields []string
}

// readImportFile parses a CSV export, lowercases the header and checks that
// the required columns are present before any row is considered.
func readImportFile(src io.Reader, required []string) ([]importRow, map[string]int, error) {
	reader := csv.NewReader(src)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headerFields, err := reader.Read()
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "import file has no header row")
	}
	header := map[string]int{}
	for i, name := range headerFields {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, column := range required {
		if _, ok := header[column]; !ok {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("import file is missing the %q column", column))
		}
	}

	var rows []importRow
	line := 1
	for {
		line++
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("malformed csv at line %d", line))
		}
		rows = append(rows, importRow{line: line, fields: fields})
	}
	return rows, header, nil
}

func buildClientRow(header map[string]int, fields []string) (models.Client, string) {
	code := cell(header, fields, "code")
	name := cell(header, fields, "name")
	network := cell(header, fields, "network")
	supervisor := cell(header, fields, "supervisor_code")
	if code == "" || name == "" || network == "" || supervisor == "" {
		return models.Client{}, "code, name, network and supervisor_code are required"
	}
	segment, err := enums.ParseClientSegment(cell(header, fields, "segment"))
	if err != nil {
		return models.Client{}, err.Error()
	}

	client := models.Client{
		Code:            code,
		Name:            name,
		Network:         network,
		SalesChannel:    cell(header, fields, "sales_channel"),
		Segment:         segment,
		SalespersonCode: cell(header, fields, "salesperson_code"),
		SupervisorCode:  supervisor,
		SupervisorName:  cell(header, fields, "supervisor_name"),
	}
	if sub := cell(header, fields, "sub_network"); sub != "" {
		client.SubNetwork = &sub
	}
	return client, ""
}

func buildProductRow(header map[string]int, fields []string) (models.Product, string) {
	code := cell(header, fields, "code")
	name := cell(header, fields, "name")
	if code == "" || name == "" {
		return models.Product{}, "code and name are required"
	}

	product := models.Product{
		Code:     code,
		FreeCode: cell(header, fields, "free_code"),
		Name:     name,
	}
	for column, target := range map[string]**decimal.Decimal{
		"minimum_price":     &product.MinimumPrice,
		"maximum_price":     &product.MaximumPrice,
		"promotional_price": &product.PromotionalPrice,
	} {
		raw := cell(header, fields, column)
		if raw == "" {
			continue
		}
		price, err := parsePrice(raw)
		if err != nil {
			return models.Product{}, fmt.Sprintf("invalid %s %q", column, raw)
		}
		if !price.IsPositive() {
			return models.Product{}, fmt.Sprintf("%s must be positive, got %q", column, raw)
		}
		*target = &price
	}
	return product, ""
}

func buildRuleRow(header map[string]int, fields []string) (models.DiscountRule, string) {
	productCode := cell(header, fields, "product_code")
	if productCode == "" {
		return models.DiscountRule{}, "product_code is required"
	}
	percent, err := discount.ParsePercent(cell(header, fields, "percent"))
	if err != nil {
		return models.DiscountRule{}, err.Error()
	}

	rule := models.DiscountRule{
		ID:          uuid.New(),
		ProductCode: productCode,
		Percent:     percent,
	}
	if network := cell(header, fields, "network"); network != "" {
		rule.Network = &network
	}
	if sub := cell(header, fields, "sub_network"); sub != "" {
		rule.SubNetwork = &sub
	}
	return rule, ""
}

func cell(header map[string]int, fields []string, column string) string {
	idx, ok := header[column]
	if !ok || idx >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[idx])
}

// parsePrice accepts both dot-decimal and Brazilian comma-decimal notation,
// including thousands separators ("1.234,56").
func parsePrice(raw string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(raw)
	if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}
	return decimal.NewFromString(cleaned)
}
