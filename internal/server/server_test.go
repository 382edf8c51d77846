package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/TobiSchelling/personality-predictor/internal/dataset"
	"github.com/TobiSchelling/personality-predictor/internal/model"
	"github.com/TobiSchelling/personality-predictor/internal/pipeline"
)

func newTestServer(t *testing.T, datasetPath string) *Server {
	t.Helper()
	opts := pipeline.Options{
		DatasetPath: datasetPath,
		Dataset:     dataset.DefaultOptions(),
		Model:       model.DefaultConfig(),
	}
	srv, err := New(pipeline.NewCache(nil, nil), opts, nil)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return srv
}

func trainedServer(t *testing.T) *Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "train.csv")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create dataset: %v", err)
	}
	if err := dataset.WriteSynthetic(f, 100, 42); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	f.Close()
	return newTestServer(t, path)
}

func validForm() url.Values {
	return url.Values{
		dataset.TimeSpentAlone:          {"3"},
		dataset.StageFear:               {"No"},
		dataset.SocialEventAttendance:   {"5"},
		dataset.GoingOutside:            {"4"},
		dataset.DrainedAfterSocializing: {"No"},
		dataset.FriendsCircleSize:       {"8"},
		dataset.PostFrequency:           {"5"},
	}
}

func postForm(t *testing.T, srv *Server, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/predict", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestIndexRoute(t *testing.T) {
	srv := trainedServer(t)
	rec := get(t, srv, "/")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"Personality Predictor",
		"Logistic Regression",
		"100 samples",
		"Hours spent alone per day",
		"Do you experience stage fear?",
		`name="Friends_circle_size"`,
		`type="range" id="Time_spent_Alone" name="Time_spent_Alone" value="3" min="0" max="12" step="0.5"`,
		`<output for="Friends_circle_size">8</output>`,
		"Time &amp; Social Behavior",
		"Psychological Traits",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in response body", want)
		}
	}
	if strings.Contains(body, "Your Personality Prediction") {
		t.Error("index should not show a prediction")
	}
}

func TestPredictRoute(t *testing.T) {
	srv := trainedServer(t)
	rec := postForm(t, srv, validForm())

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"Your Personality Prediction",
		"Confidence:",
		"Extrovert Probability",
		"Introvert Probability",
		"Insights",
		"<strong>Remember:</strong>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in response body", want)
		}
	}
	if !strings.Contains(body, "Extrovert Characteristics") && !strings.Contains(body, "Introvert Characteristics") {
		t.Error("expected characteristics for the predicted label")
	}
}

func TestPredictKeepsSubmittedValues(t *testing.T) {
	srv := trainedServer(t)
	form := validForm()
	form.Set(dataset.TimeSpentAlone, "7.5")
	form.Set(dataset.StageFear, "Yes")

	body := postForm(t, srv, form).Body.String()
	if !strings.Contains(body, `value="7.5"`) {
		t.Error("expected submitted hours to be kept in the form")
	}
	if !strings.Contains(body, `<option value="Yes" selected>`) {
		t.Error("expected submitted answer to stay selected")
	}
}

func TestPredictInvalidInput(t *testing.T) {
	srv := trainedServer(t)
	form := validForm()
	form.Set(dataset.TimeSpentAlone, "13")
	form.Set(dataset.GoingOutside, "often")
	form.Set(dataset.StageFear, "Sometimes")

	rec := postForm(t, srv, form)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "must be a number") {
		t.Error("expected number error in response")
	}
	if strings.Contains(body, "Your Personality Prediction") {
		t.Error("invalid input must not produce a prediction")
	}
}

func TestPredictOutOfRange(t *testing.T) {
	srv := trainedServer(t)
	form := validForm()
	form.Set(dataset.TimeSpentAlone, "13")
	form.Set(dataset.StageFear, "Sometimes")

	rec := postForm(t, srv, form)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "must be at most 12") {
		t.Error("expected range error in response")
	}
	if !strings.Contains(body, "must be one of: Yes, No") {
		t.Error("expected vocabulary error in response")
	}
}

func TestGetPredictRedirects(t *testing.T) {
	srv := trainedServer(t)
	rec := get(t, srv, "/predict")
	if rec.Code != http.StatusFound {
		t.Errorf("expected 302, got %d", rec.Code)
	}
}

func TestFailedPipeline(t *testing.T) {
	srv := newTestServer(t, filepath.Join(t.TempDir(), "missing.csv"))

	rec := get(t, srv, "/")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Error loading data") {
		t.Error("expected load error in response")
	}
	if strings.Contains(body, "Predict My Personality") {
		t.Error("form must not be shown when the model is unavailable")
	}

	rec = postForm(t, srv, validForm())
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 on predict, got %d", rec.Code)
	}

	rec = get(t, srv, "/healthz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 on healthz, got %d", rec.Code)
	}
}

func TestHealthRoute(t *testing.T) {
	srv := trainedServer(t)
	rec := get(t, srv, "/healthz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 before the first run, got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != "training" {
		t.Errorf("expected 'training', got %q", rec.Body.String())
	}

	get(t, srv, "/")
	rec = get(t, srv, "/healthz")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != "ok" {
		t.Errorf("expected 'ok', got %q", rec.Body.String())
	}
}

func TestStaticRoute(t *testing.T) {
	srv := trainedServer(t)
	rec := get(t, srv, "/static/style.css")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), ".prediction-card") {
		t.Error("expected stylesheet content")
	}
}

func TestMetricsRoute(t *testing.T) {
	srv := trainedServer(t)
	postForm(t, srv, validForm())

	rec := get(t, srv, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "personality_predictions_total") {
		t.Error("expected prediction counter in metrics output")
	}
	if !strings.Contains(body, "personality_model_accuracy") {
		t.Error("expected accuracy gauge in metrics output")
	}
}

func TestFormatters(t *testing.T) {
	counts := map[int]string{0: "0", 999: "999", 1000: "1,000", 18526: "18,526", 1234567: "1,234,567", -4200: "-4,200"}
	for n, want := range counts {
		if got := formatCount(n); got != want {
			t.Errorf("formatCount(%d) = %q, want %q", n, got, want)
		}
	}
	if got := formatPercent(0.25); got != "25.0%" {
		t.Errorf("formatPercent(0.25) = %q", got)
	}
}

func TestInsightsIncludeSpectrumNote(t *testing.T) {
	for _, label := range []int{dataset.LabelExtrovert, dataset.LabelIntrovert} {
		html := string(renderMarkdown(insights(label)))
		if !strings.Contains(html, "<li>") {
			t.Errorf("label %d: expected a bullet list, got %s", label, html)
		}
		if !strings.Contains(html, "exists on a spectrum") {
			t.Errorf("label %d: expected spectrum reminder", label)
		}
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	srv := newTestServer(t, filepath.Join(t.TempDir(), "missing.csv"))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Serve(ctx, "127.0.0.1:0", srv, zap.NewNop()) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServeReportsListenError(t *testing.T) {
	srv := newTestServer(t, filepath.Join(t.TempDir(), "missing.csv"))
	if err := Serve(context.Background(), "127.0.0.1:-1", srv, zap.NewNop()); err == nil {
		t.Fatal("expected listen error for invalid port")
	}
}
