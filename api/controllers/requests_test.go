package controllers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/grupomeridio/pricedesk-backend/api/middleware"
	"github.com/grupomeridio/pricedesk-backend/internal/requests"
	"github.com/grupomeridio/pricedesk-backend/pkg/db/models"
	"github.com/grupomeridio/pricedesk-backend/pkg/enums"
)

type stubRequestsService struct {
	transition func(ctx context.Context, input requests.TransitionInput) (*requests.TransitionResult, error)
}

// CreateRequest implements [requests.Service].
func (s stubRequestsService) CreateRequest(ctx context.Context, input requests.CreateRequestInput) (*models.PriceRequest, error) {
	panic("unimplemented")
}

// CreateBatch implements [requests.Service].
func (s stubRequestsService) CreateBatch(ctx context.Context, input requests.CreateBatchInput) (*requests.BatchCreateResult, error) {
	panic("unimplemented")
}

// GetRequest implements [requests.Service].
func (s stubRequestsService) GetRequest(ctx context.Context, id uuid.UUID, actorCode string, actorRole enums.ActorRole) (*models.PriceRequest, error) {
	panic("unimplemented")
}

// ListRequests implements [requests.Service].
func (s stubRequestsService) ListRequests(ctx context.Context, input requests.ListRequestsInput) (*requests.RequestList, error) {
	panic("unimplemented")
}

// Summary implements [requests.Service].
func (s stubRequestsService) Summary(ctx context.Context, actorCode string, actorRole enums.ActorRole) (*requests.StatusSummary, error) {
	panic("unimplemented")
}

// PreviewDecision implements [requests.Service].
func (s stubRequestsService) PreviewDecision(ctx context.Context, input requests.CreateRequestInput) (*requests.Preview, error) {
	panic("unimplemented")
}

func (s stubRequestsService) Transition(ctx context.Context, input requests.TransitionInput) (*requests.TransitionResult, error) {
	if s.transition != nil {
		return s.transition(ctx, input)
	}
	return &requests.TransitionResult{}, nil
}

func actorContext(req *http.Request, code string, role enums.ActorRole) *http.Request {
	ctx := middleware.WithUserCode(req.Context(), code)
	ctx = middleware.WithRole(ctx, string(role))
	return req.WithContext(ctx)
}

func TestRequestDecisionForwardsActorIdentity(t *testing.T) {
	requestID := uuid.New()
	var captured requests.TransitionInput
	svc := stubRequestsService{
		transition: func(ctx context.Context, input requests.TransitionInput) (*requests.TransitionResult, error) {
			captured = input
			return &requests.TransitionResult{Applied: 1}, nil
		},
	}

	router := chi.NewRouter()
	router.Post("/requests/{requestId}/decision", RequestDecision(svc, testLogger()))

	body := `{"action":"approve","note":"fits the quarter target"}`
	req := httptest.NewRequest(http.MethodPost, "/requests/"+requestID.String()+"/decision", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	req = actorContext(req, "S200", enums.ActorRoleSupervisor)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body %s", resp.Code, resp.Body.String())
	}

	if captured.RequestID == nil || *captured.RequestID != requestID {
		t.Fatalf("expected request id %s got %v", requestID, captured.RequestID)
	}
	if captured.Action != enums.TransitionActionApprove {
		t.Fatalf("expected approve action got %s", captured.Action)
	}
	if captured.ActorCode != "S200" {
		t.Fatalf("expected actor code from context got %q", captured.ActorCode)
	}
	if captured.ActorRole != enums.ActorRoleSupervisor {
		t.Fatalf("expected supervisor role got %s", captured.ActorRole)
	}
}

func TestRequestDecisionRejectsUnknownAction(t *testing.T) {
	router := chi.NewRouter()
	router.Post("/requests/{requestId}/decision", RequestDecision(stubRequestsService{}, testLogger()))

	body := `{"action":"promote"}`
	req := httptest.NewRequest(http.MethodPost, "/requests/"+uuid.NewString()+"/decision", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	req = actorContext(req, "S200", enums.ActorRoleSupervisor)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRequestDecisionRejectsMalformedID(t *testing.T) {
	router := chi.NewRouter()
	router.Post("/requests/{requestId}/decision", RequestDecision(stubRequestsService{}, testLogger()))

	req := httptest.NewRequest(http.MethodPost, "/requests/not-a-uuid/decision", bytes.NewReader([]byte(`{"action":"approve"}`)))
	req.Header.Set("Content-Type", "application/json")
	req = actorContext(req, "S200", enums.ActorRoleSupervisor)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestBatchDecisionForwardsBatchID(t *testing.T) {
	batchID := uuid.New()
	var captured requests.TransitionInput
	svc := stubRequestsService{
		transition: func(ctx context.Context, input requests.TransitionInput) (*requests.TransitionResult, error) {
			captured = input
			return &requests.TransitionResult{Applied: 3}, nil
		},
	}

	router := chi.NewRouter()
	router.Post("/requests/batches/{batchId}/decision", BatchDecision(svc, testLogger()))

	body := `{"action":"reject","note":"margin floor breached"}`
	req := httptest.NewRequest(http.MethodPost, "/requests/batches/"+batchID.String()+"/decision", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	req = actorContext(req, "G300", enums.ActorRoleGerente)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body %s", resp.Code, resp.Body.String())
	}

	if captured.BatchID == nil || *captured.BatchID != batchID {
		t.Fatalf("expected batch id %s got %v", batchID, captured.BatchID)
	}
	if captured.Action != enums.TransitionActionReject {
		t.Fatalf("expected reject action got %s", captured.Action)
	}
}
