package form

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg), WithNamespace("test"))

	fail := true
	f := newTestForm(t,
		WithID("signup"),
		WithMetrics(m),
		WithOnSubmit(func(context.Context, Values) error {
			if fail {
				return errors.New("backend down")
			}
			return nil
		}),
	)
	mustRegister(t, f, "email", FieldConfig{Kind: Email(), Validators: required("")})

	f.SetValue("email", "")
	if got := testutil.ToFloat64(m.validations.WithLabelValues("signup", "email", "invalid")); got != 1 {
		t.Errorf("invalid validations = %v, want 1", got)
	}

	f.HandleSubmit(context.Background(), nil)
	f.SetValue("email", "ada@example.com")
	f.HandleSubmit(context.Background(), nil)
	fail = false
	f.HandleSubmit(context.Background(), nil)

	for outcome, want := range map[string]float64{"invalid": 1, "failed": 1, "submitted": 1} {
		if got := testutil.ToFloat64(m.submissions.WithLabelValues("signup", outcome)); got != want {
			t.Errorf("submissions{outcome=%q} = %v, want %v", outcome, got, want)
		}
	}

	n, err := testutil.GatherAndCount(reg, "test_submissions_total")
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("submission series = %d, want 3", n)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.observeValidation("f", "x", resultValid, 0)
	m.observeSubmit("f", OutcomeSubmitted, 0)
}
