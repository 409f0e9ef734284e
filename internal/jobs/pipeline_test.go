package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"vendor-pipeline/internal/core"
)

type stubRemittanceSource struct {
	since time.Time
	files []core.RemittanceFile
	err   error
}

func (s *stubRemittanceSource) FetchRemittances(ctx context.Context, since time.Time) ([]core.RemittanceFile, error) {
	s.since = since
	return s.files, s.err
}

type stubRemittanceService struct {
	imported []core.PaymentNumber
	failOn   core.PaymentNumber
	knownOn  core.PaymentNumber
}

func (s *stubRemittanceService) Import(ctx context.Context, file core.RemittanceFile) (*core.ImportResult, error) {
	s.imported = append(s.imported, file.PaymentNumber)
	if file.PaymentNumber == s.failOn {
		return nil, errors.New("malformed batch")
	}
	result := &core.ImportResult{PaymentNumber: file.PaymentNumber, TotalLines: len(file.Lines)}
	if file.PaymentNumber == s.knownOn {
		result.AlreadyImported = true
	}
	return result, nil
}

func remittancePipeline(source core.RemittanceSource, remits core.RemittanceService) *Pipeline {
	return NewPipeline(zap.NewNop(), nil, nil, nil, nil, source, remits, nil)
}

func TestPollRemittances_ImportsEveryFile(t *testing.T) {
	source := &stubRemittanceSource{files: []core.RemittanceFile{
		{PaymentNumber: "PAY-1"},
		{PaymentNumber: "PAY-2"},
		{PaymentNumber: "PAY-3"},
	}}
	remits := &stubRemittanceService{knownOn: "PAY-2"}

	start := time.Now()
	if err := remittancePipeline(source, remits).PollRemittances(context.Background()); err != nil {
		t.Fatalf("PollRemittances: %v", err)
	}

	if len(remits.imported) != 3 {
		t.Fatalf("imported %d files, want 3", len(remits.imported))
	}
	// An already-imported batch still goes through Import; the service
	// resolves it as a no-op, so it must not surface as an error.
	lookback := start.Sub(source.since)
	if lookback < 29*24*time.Hour || lookback > 31*24*time.Hour {
		t.Errorf("lookback = %s, want about 30 days", lookback)
	}
}

func TestPollRemittances_ContinuesPastFailures(t *testing.T) {
	source := &stubRemittanceSource{files: []core.RemittanceFile{
		{PaymentNumber: "PAY-1"},
		{PaymentNumber: "PAY-2"},
		{PaymentNumber: "PAY-3"},
	}}
	remits := &stubRemittanceService{failOn: "PAY-2"}

	err := remittancePipeline(source, remits).PollRemittances(context.Background())
	if err == nil {
		t.Fatal("expected aggregate error, got nil")
	}
	if got, want := err.Error(), "1 of 3 remittances failed to import"; got != want {
		t.Errorf("error = %q, want %q", got, want)
	}
	// The failing batch must not stop the ones behind it.
	if len(remits.imported) != 3 {
		t.Errorf("imported %d files, want 3", len(remits.imported))
	}
}

func TestPollRemittances_FetchFailureIsReturned(t *testing.T) {
	source := &stubRemittanceSource{err: errors.New("partner unavailable")}
	remits := &stubRemittanceService{}

	if err := remittancePipeline(source, remits).PollRemittances(context.Background()); err == nil {
		t.Fatal("expected fetch error, got nil")
	}
	if len(remits.imported) != 0 {
		t.Errorf("imported %d files, want 0", len(remits.imported))
	}
}
