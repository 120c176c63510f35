package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"banksim/internal/core"
)

func TestRecorder_CountsOperations(t *testing.T) {
	r := NewRecorder()

	r.Report(core.Event{Bank: "bank-1", Kind: core.KindDeposit, Amount: decimal.NewFromInt(40), Balance: decimal.NewFromInt(40), Success: true})
	r.Report(core.Event{Bank: "bank-1", Kind: core.KindDeposit, Amount: decimal.NewFromInt(10), Balance: decimal.NewFromInt(50), Success: true})
	r.Report(core.Event{Bank: "bank-1", Kind: core.KindWithdraw, Amount: decimal.NewFromInt(80), Balance: decimal.NewFromInt(50)})
	r.Report(core.Event{Bank: "bank-1", Kind: core.KindWithdraw, Amount: decimal.NewFromInt(20), Balance: decimal.NewFromInt(30), Success: true})

	if got := testutil.ToFloat64(r.operations.WithLabelValues("deposit", "ok")); got != 2 {
		t.Errorf("deposit ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.operations.WithLabelValues("withdraw", "failed")); got != 1 {
		t.Errorf("withdraw failed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.amounts.WithLabelValues("deposit")); got != 50 {
		t.Errorf("deposit amount = %v, want 50", got)
	}
	if got := testutil.ToFloat64(r.bankBalance.WithLabelValues("bank-1")); got != 30 {
		t.Errorf("bank balance = %v, want 30", got)
	}
}

func TestRecorder_ActiveActors(t *testing.T) {
	r := NewRecorder()
	r.SetActiveActors(3)
	if got := testutil.ToFloat64(r.activeActors); got != 3 {
		t.Errorf("active actors = %v, want 3", got)
	}
}

func TestRecorder_SeparateRegistries(t *testing.T) {
	// Two recorders in one process must not panic on duplicate registration
	a := NewRecorder()
	b := NewRecorder()
	a.Report(core.Event{Kind: core.KindPanic})

	n, err := testutil.GatherAndCount(b.Registry(), "banksim_operations_total")
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("second recorder should only have its 4 pre-initialized series, got %d", n)
	}
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.Report(core.Event{Bank: "bank-1", Kind: core.KindDeposit, Amount: decimal.NewFromInt(1), Balance: decimal.NewFromInt(1), Success: true})

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `banksim_operations_total{kind="deposit",outcome="ok"} 1`) {
		t.Errorf("metrics output missing deposit counter:\n%s", body)
	}
}

func TestRecorder_Router(t *testing.T) {
	r := NewRecorder()
	h := r.Router()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != 200 || rec.Body.String() != "ok" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "banksim_active_actors 0") {
		t.Errorf("metrics output missing active actors gauge:\n%s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/nope", nil))
	if rec.Code != 404 {
		t.Errorf("unknown path = %d, want 404", rec.Code)
	}
}
