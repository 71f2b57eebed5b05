package refdata

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/grupomeridio/pricedesk-backend/pkg/db/models"
	"github.com/grupomeridio/pricedesk-backend/pkg/enums"
	pkgerrors "github.com/grupomeridio/pricedesk-backend/pkg/errors"
	"github.com/grupomeridio/pricedesk-backend/pkg/pagination"
)

type stubRefdataRepo struct {
	clients  []models.Client
	products []models.Product
	rules    []models.DiscountRule

	upsertedClients  []models.Client
	upsertedProducts []models.Product
	replacedRules    []models.DiscountRule
}

func (s *stubRefdataRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRefdataRepo) FindClientByCode(ctx context.Context, code string) (*models.Client, error) {
	for i := range s.clients {
		if s.clients[i].Code == code {
			return &s.clients[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRefdataRepo) ListClientsBySubNetwork(ctx context.Context, subNetwork string) ([]models.Client, error) {
	var out []models.Client
	for _, c := range s.clients {
		if c.SubNetwork != nil && *c.SubNetwork == subNetwork {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *stubRefdataRepo) ListClients(ctx context.Context, params pagination.Params, filters ClientFilters) (*ClientList, error) {
	return &ClientList{Clients: s.clients}, nil
}

func (s *stubRefdataRepo) UpsertClients(ctx context.Context, clients []models.Client) error {
	s.upsertedClients = append(s.upsertedClients, clients...)
	return nil
}

func (s *stubRefdataRepo) FindProductByCode(ctx context.Context, code string) (*models.Product, error) {
	for i := range s.products {
		if s.products[i].Code == code {
			return &s.products[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRefdataRepo) ListProducts(ctx context.Context, params pagination.Params, filters ProductFilters) (*ProductList, error) {
	return &ProductList{Products: s.products}, nil
}

func (s *stubRefdataRepo) UpsertProducts(ctx context.Context, products []models.Product) error {
	s.upsertedProducts = append(s.upsertedProducts, products...)
	return nil
}

func (s *stubRefdataRepo) ListRulesForProduct(ctx context.Context, productCode string) ([]models.DiscountRule, error) {
	var out []models.DiscountRule
	for _, r := range s.rules {
		if r.ProductCode == productCode {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubRefdataRepo) ListRules(ctx context.Context) ([]models.DiscountRule, error) {
	return s.rules, nil
}

func (s *stubRefdataRepo) ReplaceRules(ctx context.Context, rules []models.DiscountRule) error {
	s.replacedRules = rules
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, nil)
	require.NoError(t, err)
	return svc
}

func TestImportClientsParsesRowsAndSkipsBadOnes(t *testing.T) {
	repo := &stubRefdataRepo{}
	svc := newTestService(t, repo)

	file := strings.Join([]string{
		"code,name,network,sub_network,sales_channel,segment,salesperson_code,supervisor_code,supervisor_name",
		"C001,Mercado Central,Rede Norte,ABC,distribuicao,varejo,V010,S001,Carlos Dias",
		"C002,Padaria Sol,Rede Norte,,distribuicao,padaria,V010,S001,Carlos Dias",
		"C003,Sem Rede,,,distribuicao,varejo,V010,S001,Carlos Dias",
		"C004,Segmento Errado,Rede Sul,,distribuicao,armazem,V011,S002,Ana Lima",
	}, "\n")

	summary, err := svc.ImportClients(context.Background(), strings.NewReader(file))
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Rows)
	assert.Equal(t, 2, summary.Imported)
	assert.Equal(t, 2, summary.Skipped)
	require.Len(t, summary.Issues, 2)
	assert.Equal(t, 4, summary.Issues[0].Line)
	assert.Equal(t, 5, summary.Issues[1].Line)

	require.Len(t, repo.upsertedClients, 2)
	first := repo.upsertedClients[0]
	require.NotNil(t, first.SubNetwork)
	assert.Equal(t, "ABC", *first.SubNetwork)
	second := repo.upsertedClients[1]
	assert.Nil(t, second.SubNetwork)
	assert.Equal(t, enums.ClientSegmentPadaria, second.Segment)
}

func TestImportProductsParsesBrazilianPrices(t *testing.T) {
	repo := &stubRefdataRepo{}
	svc := newTestService(t, repo)

	file := strings.Join([]string{
		"code,free_code,name,minimum_price,maximum_price,promotional_price",
		`P1,F1,Farinha Especial 25kg,"1.234,56","1.500,00",`,
		"P2,F2,Fermento 500g,10.50,12,9",
		"P3,F3,Preco Invalido,abc,,",
	}, "\n")

	summary, err := svc.ImportProducts(context.Background(), strings.NewReader(file))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Imported)
	assert.Equal(t, 1, summary.Skipped)

	require.Len(t, repo.upsertedProducts, 2)
	p1 := repo.upsertedProducts[0]
	require.NotNil(t, p1.MinimumPrice)
	assert.True(t, p1.MinimumPrice.Equal(decimal.RequireFromString("1234.56")))
	require.NotNil(t, p1.MaximumPrice)
	assert.True(t, p1.MaximumPrice.Equal(decimal.RequireFromString("1500")))
	assert.Nil(t, p1.PromotionalPrice)
}

func TestImportRulesSkipsInertAndDuplicateRows(t *testing.T) {
	repo := &stubRefdataRepo{}
	svc := newTestService(t, repo)

	file := strings.Join([]string{
		"network,sub_network,product_code,percent",
		"Rede Norte,,P1,\"5,5%\"",
		"Rede Norte,,P1,3",
		",,P1,4",
		",ABC,P1,2",
	}, "\n")

	summary, err := svc.ImportRules(context.Background(), strings.NewReader(file))
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Rows)
	assert.Equal(t, 2, summary.Imported)
	assert.Equal(t, 2, summary.Skipped)

	require.Len(t, repo.replacedRules, 2)
	assert.True(t, repo.replacedRules[0].Percent.Equal(decimal.RequireFromString("5.5")))
	assert.Equal(t, enums.RuleScopeSubNetwork, repo.replacedRules[1].Scope())
}

func TestImportRejectsMissingColumns(t *testing.T) {
	svc := newTestService(t, &stubRefdataRepo{})

	_, err := svc.ImportClients(context.Background(), strings.NewReader("code,name\nC001,Mercado"))
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestGetClientMapsNotFound(t *testing.T) {
	svc := newTestService(t, &stubRefdataRepo{})

	_, err := svc.GetClient(context.Background(), "C404")
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}
