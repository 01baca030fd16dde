package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/deppfellow/cardapi/internal/errs"
	"github.com/deppfellow/cardapi/internal/lib/job"
	"github.com/deppfellow/cardapi/internal/lib/marker"
	"github.com/deppfellow/cardapi/internal/model"
	"github.com/deppfellow/cardapi/internal/repository"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

const (
	oibA int64 = 12345678901
	oibB int64 = 98765432109
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []job.ProcessNotifyPayload
}

func (r *recordingNotifier) NotifyProcessEvent(_ context.Context, p job.ProcessNotifyPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, p)
	return nil
}

type fixture struct {
	fs       afero.Fs
	repo     *repository.MemoryClientRepository
	markers  *marker.Store
	notifier *recordingNotifier
	process  *ProcessService
	clients  *ClientService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithRepo(t, repository.NewMemoryClientRepository())
}

func newFixtureWithRepo(t *testing.T, repo repository.ClientRepository) *fixture {
	t.Helper()
	logger := zerolog.Nop()
	fs := afero.NewMemMapFs()
	clock := func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }
	markers := marker.NewStore(fs, "markers", marker.WithClock(clock))
	notifier := &recordingNotifier{}
	process := NewProcessService(repo, markers, notifier, &logger)

	f := &fixture{
		fs:       fs,
		markers:  markers,
		notifier: notifier,
		process:  process,
		clients:  NewClientService(repo, process, &logger),
	}
	if mem, ok := repo.(*repository.MemoryClientRepository); ok {
		f.repo = mem
	}
	return f
}

func (f *fixture) create(t *testing.T, oib int64, first, last string) *model.Client {
	t.Helper()
	c, err := f.clients.Create(context.Background(), &model.CreateClientRequest{ClientBody: model.ClientBody{
		OIB: &oib, FirstName: &first, LastName: &last,
	}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return c
}

func (f *fixture) status(t *testing.T, id int64) model.Status {
	t.Helper()
	c, err := f.repo.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("find %d: %v", id, err)
	}
	return c.Status
}

func (f *fixture) markerOwner(t *testing.T, oib int64) int64 {
	t.Helper()
	rec, err := f.markers.Lookup(oib)
	if err != nil {
		t.Fatalf("lookup %d: %v", oib, err)
	}
	if rec == nil {
		return 0
	}
	return rec.ID
}

// must unwraps a (message, error) pair, failing the test on error.
func must(t *testing.T) func(string, error) string {
	t.Helper()
	return func(msg string, err error) string {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return msg
	}
}

func plainBody(t *testing.T, err error) string {
	t.Helper()
	var httpErr *errs.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *errs.HTTPError, got %v", err)
	}
	return httpErr.Body()
}

func TestCreateForcesRequested(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, oibA, "Ana", "Horvat")
	if c.ID != 1 || c.Status != model.StatusRequested {
		t.Fatalf("got %+v", c)
	}
}

func TestGetMissing(t *testing.T) {
	f := newFixture(t)
	_, err := f.clients.Get(context.Background(), 5)
	if got := plainBody(t, err); got != "ERROR: Client request under ID: 5 does not exist." {
		t.Fatalf("got %q", got)
	}
}

func TestStartAndStop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.create(t, oibA, "Ana", "Horvat")

	got := must(t)(f.process.Start(ctx, 1))
	want := "Process started for Client request ID: 1.\nData: Ana Horvat, OIB: 12345678901, Status: STARTED."
	if got != want {
		t.Fatalf("start = %q, want %q", got, want)
	}
	if f.markerOwner(t, oibA) != 1 || f.status(t, 1) != model.StatusStarted {
		t.Fatal("start must write the marker and persist STARTED")
	}

	got = must(t)(f.process.Stop(ctx, 1))
	want = "Process stopped for Client request ID: 1.\nData: Ana Horvat, OIB: 12345678901, Status: INACTIVE."
	if got != want {
		t.Fatalf("stop = %q, want %q", got, want)
	}
	if f.markerOwner(t, oibA) != 0 || f.status(t, 1) != model.StatusInactive {
		t.Fatal("stop must remove the marker and persist INACTIVE")
	}

	if len(f.notifier.events) != 2 || f.notifier.events[0].Event != job.EventStarted || f.notifier.events[1].Event != job.EventStopped {
		t.Fatalf("events = %+v", f.notifier.events)
	}
}

func TestStartTwiceLeavesOneMarker(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.create(t, oibA, "Ana", "Horvat")

	must(t)(f.process.Start(ctx, 1))
	got := must(t)(f.process.Start(ctx, 1))
	if !strings.HasPrefix(got, "Process already started for Client request ID: 1.") {
		t.Fatalf("second start = %q", got)
	}

	records, corrupted, err := f.markers.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || len(corrupted) != 0 {
		t.Fatalf("records = %+v, corrupted = %v", records, corrupted)
	}
}

func TestStartBlockedByDifferentRequest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.create(t, oibA, "Ana", "Horvat")
	f.create(t, oibA, "Ana", "Horvat-Kovač")

	must(t)(f.process.Start(ctx, 1))
	got := must(t)(f.process.Start(ctx, 2))
	want := "Process already started for different Client request ID: 1.\nData: Ana Horvat, OIB: 12345678901, Status: STARTED."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if f.status(t, 2) != model.StatusRequested {
		t.Fatal("blocked request must keep its status")
	}
}

func TestStartTakesOverStaleMarker(t *testing.T) {
	ctx := context.Background()

	t.Run("owner deleted", func(t *testing.T) {
		f := newFixture(t)
		f.create(t, oibA, "Ana", "Horvat")
		if _, err := f.markers.Start(model.Client{ID: 99, OIB: oibA, FirstName: "Old", LastName: "Owner", Status: model.StatusStarted}); err != nil {
			t.Fatal(err)
		}

		got := must(t)(f.process.Start(ctx, 1))
		if !strings.HasPrefix(got, "Process started for Client request ID: 1.") || f.markerOwner(t, oibA) != 1 {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("owner inactive", func(t *testing.T) {
		f := newFixture(t)
		f.create(t, oibA, "Ana", "Horvat")
		owner := f.create(t, oibA, "Ana", "Horvat")
		owner.Status = model.StatusInactive
		if err := f.repo.Update(ctx, owner); err != nil {
			t.Fatal(err)
		}
		if _, err := f.markers.Start(*owner); err != nil {
			t.Fatal(err)
		}

		must(t)(f.process.Start(ctx, 1))
		if f.markerOwner(t, oibA) != 1 {
			t.Fatal("marker of an inactive request must be taken over")
		}
	})
}

func TestStartOverwritesCorruptedMarker(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.create(t, oibA, "Ana", "Horvat")

	name := filepath.Join("markers", marker.FileName(oibA, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)))
	if err := afero.WriteFile(f.fs, name, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	must(t)(f.process.Start(ctx, 1))
	if f.markerOwner(t, oibA) != 1 {
		t.Fatal("corrupted marker must be replaced")
	}
}

func TestStopNotYetStarted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.create(t, oibA, "Ana", "Horvat")
	f.create(t, oibA, "Ana", "Horvat")

	if got := must(t)(f.process.Stop(ctx, 1)); got != "Client request ID: 1 not yet started." {
		t.Fatalf("got %q", got)
	}

	must(t)(f.process.Start(ctx, 1))
	if got := must(t)(f.process.Stop(ctx, 2)); got != "Client request ID: 2 not yet started." {
		t.Fatalf("another request's marker must not be stopped, got %q", got)
	}
	if f.markerOwner(t, oibA) != 1 {
		t.Fatal("marker of request 1 must survive")
	}
}

func TestStopMissingClient(t *testing.T) {
	f := newFixture(t)
	_, err := f.process.Stop(context.Background(), 3)
	if got := plainBody(t, err); got != "ERROR: Client request under ID: 3 does not exist." {
		t.Fatalf("got %q", got)
	}
}

func TestStopAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.create(t, oibA, "Ana", "Horvat")
	f.create(t, oibB, "Ivo", "Kovač")
	f.create(t, oibB, "Eva", "Babić")

	must(t)(f.process.Start(ctx, 1))
	must(t)(f.process.Start(ctx, 2))

	if got := must(t)(f.process.StopAll(ctx)); got != StopAllMessage {
		t.Fatalf("got %q", got)
	}
	for id, want := range map[int64]model.Status{1: model.StatusInactive, 2: model.StatusInactive, 3: model.StatusRequested} {
		if got := f.status(t, id); got != want {
			t.Fatalf("client %d status = %s, want %s", id, got, want)
		}
	}
	if records, _, _ := f.markers.List(); len(records) != 0 {
		t.Fatalf("markers left: %+v", records)
	}
}

func TestDeleteRemovesOwnedMarker(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.create(t, oibA, "Ana", "Horvat")
	must(t)(f.process.Start(ctx, 1))

	got := must(t)(f.clients.Delete(ctx, 1))
	want := "Client request ID: 1 is deleted.\nData: Ana Horvat, OIB: 12345678901, Status: INACTIVE."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if f.markerOwner(t, oibA) != 0 {
		t.Fatal("deleting the owner must remove the marker")
	}

	_, err := f.clients.Delete(ctx, 1)
	if got := plainBody(t, err); got != "ERROR: Client request under ID: 1 does not exist." {
		t.Fatalf("got %q", got)
	}
}

func TestDeleteKeepsForeignMarker(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.create(t, oibA, "Ana", "Horvat")
	f.create(t, oibA, "Ana", "Horvat")
	must(t)(f.process.Start(ctx, 1))

	must(t)(f.clients.Delete(ctx, 2))
	if f.markerOwner(t, oibA) != 1 {
		t.Fatal("deleting another request must not touch the marker")
	}
}

func TestDeleteByOIB(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.create(t, oibA, "Ana", "Horvat")
	f.create(t, oibB, "Ivo", "Kovač")
	f.create(t, oibA, "Ana", "Horvat")
	must(t)(f.process.Start(ctx, 3))

	got := must(t)(f.clients.DeleteByOIB(ctx, oibA))
	want := "Client request ID: 1 is deleted.\nData: Ana Horvat, OIB: 12345678901, Status: INACTIVE." +
		"\n\n" +
		"Client request ID: 3 is deleted.\nData: Ana Horvat, OIB: 12345678901, Status: INACTIVE."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if f.markerOwner(t, oibA) != 0 {
		t.Fatal("marker of the OIB must be removed")
	}

	_, err := f.clients.DeleteByOIB(ctx, oibA)
	if got := plainBody(t, err); got != "ERROR: No Client requests found for OIB: 12345678901" {
		t.Fatalf("got %q", got)
	}
}

type failingDeleteRepo struct {
	*repository.MemoryClientRepository
}

func (failingDeleteRepo) DeleteByOIB(context.Context, int64) ([]model.Client, error) {
	return nil, errors.New("connection reset")
}

func TestDeleteByOIBStorageFailure(t *testing.T) {
	f := newFixtureWithRepo(t, failingDeleteRepo{repository.NewMemoryClientRepository()})

	_, err := f.clients.DeleteByOIB(context.Background(), oibA)
	var httpErr *errs.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != errs.CodeDeleteFailed {
		t.Fatalf("got %v", err)
	}
	if httpErr.Body() != "ERROR: Client requests are not deleted. Internal Server Problem." {
		t.Fatalf("body = %q", httpErr.Body())
	}
}

func TestReplaceMissingCreates(t *testing.T) {
	f := newFixture(t)
	oib, first, last := oibA, "Ana", "Horvat"

	req := &model.ReplaceClientRequest{
		ClientIDRequest: model.ClientIDRequest{ID: 42},
		ClientBody:      model.ClientBody{OIB: &oib, FirstName: &first, LastName: &last},
	}
	c, err := f.clients.Replace(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if c.ID != 1 || c.Status != model.StatusRequested {
		t.Fatalf("got %+v", c)
	}
}

func TestReplaceKeepsStatusAndMovesMarker(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.create(t, oibA, "Ana", "Horvat")
	must(t)(f.process.Start(ctx, 1))

	oib, first, last := oibB, "Ana", "Kovač"
	c, err := f.clients.Replace(ctx, &model.ReplaceClientRequest{
		ClientIDRequest: model.ClientIDRequest{ID: 1},
		ClientBody:      model.ClientBody{OIB: &oib, FirstName: &first, LastName: &last},
	})
	if err != nil {
		t.Fatal(err)
	}
	if c.Status != model.StatusStarted || c.OIB != oibB {
		t.Fatalf("got %+v", c)
	}
	if f.markerOwner(t, oibA) != 0 || f.markerOwner(t, oibB) != 1 {
		t.Fatal("marker must follow the OIB change")
	}
}

func TestPatchRewritesMarkerSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.create(t, oibA, "Ana", "Horvat")
	must(t)(f.process.Start(ctx, 1))

	last := "Kovač"
	if _, err := f.clients.Patch(ctx, &model.PatchClientRequest{
		ClientIDRequest: model.ClientIDRequest{ID: 1},
		ClientBody:      model.ClientBody{LastName: &last},
	}); err != nil {
		t.Fatal(err)
	}

	rec, err := f.markers.Lookup(oibA)
	if err != nil || rec == nil {
		t.Fatalf("lookup = %+v, %v", rec, err)
	}
	if rec.LastName != "Kovač" || rec.Status != model.StatusStarted {
		t.Fatalf("marker = %+v", rec)
	}
}

func TestPatchIntoHeldOIBDemotes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.create(t, oibA, "Ana", "Horvat")
	f.create(t, oibB, "Ivo", "Kovač")
	must(t)(f.process.Start(ctx, 1))
	must(t)(f.process.Start(ctx, 2))

	oib := oibA
	c, err := f.clients.Patch(ctx, &model.PatchClientRequest{
		ClientIDRequest: model.ClientIDRequest{ID: 2},
		ClientBody:      model.ClientBody{OIB: &oib},
	})
	if err != nil {
		t.Fatal(err)
	}
	if c.Status != model.StatusInactive || f.status(t, 2) != model.StatusInactive {
		t.Fatalf("got %+v", c)
	}
	if f.markerOwner(t, oibA) != 1 || f.markerOwner(t, oibB) != 0 {
		t.Fatal("the running process of request 1 must be kept")
	}
}

func TestPatchRequestedDoesNotWriteMarker(t *testing.T) {
	f := newFixture(t)
	f.create(t, oibA, "Ana", "Horvat")

	first := "Anka"
	if _, err := f.clients.Patch(context.Background(), &model.PatchClientRequest{
		ClientIDRequest: model.ClientIDRequest{ID: 1},
		ClientBody:      model.ClientBody{FirstName: &first},
	}); err != nil {
		t.Fatal(err)
	}
	if f.markerOwner(t, oibA) != 0 {
		t.Fatal("a REQUESTED client has no marker")
	}
}

func TestReconcileMarkers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.create(t, oibA, "Ana", "Horvat")
	requested := f.create(t, 11111111111, "Eva", "Babić")
	must(t)(f.process.Start(ctx, 1))

	// Owner missing, owner not started, and a corrupted file.
	if _, err := f.markers.Start(model.Client{ID: 50, OIB: oibB, FirstName: "Gone", LastName: "Away", Status: model.StatusStarted}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.markers.Start(*requested); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join("markers", marker.FileName(22222222222, time.Now()))
	if err := afero.WriteFile(f.fs, bad, []byte("no record"), 0o644); err != nil {
		t.Fatal(err)
	}

	removed, err := f.process.ReconcileMarkers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 3 {
		t.Fatalf("removed = %d, want 3", removed)
	}

	records, corrupted, _ := f.markers.List()
	if len(records) != 1 || records[0].ID != 1 || len(corrupted) != 0 {
		t.Fatalf("records = %+v, corrupted = %v", records, corrupted)
	}
}

func TestConcurrentStartsForOneOIB(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i := 0; i < 8; i++ {
		f.create(t, oibA, "Ana", "Horvat")
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		started int
	)
	for id := int64(1); id <= 8; id++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			msg, err := f.process.Start(ctx, id)
			if err != nil {
				t.Error(err)
				return
			}
			if strings.HasPrefix(msg, "Process started") {
				mu.Lock()
				started++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	if started != 1 {
		t.Fatalf("%d starts won, want exactly 1", started)
	}
}

func TestStartRefusesNameThatWouldSplitMarker(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.create(t, oibA, "Ana", "Hor:vat")
	f.create(t, oibB, "Ana\nMarija", "Horvat")

	for _, id := range []int64{1, 2} {
		if _, err := f.process.Start(ctx, id); !errors.Is(err, marker.ErrUnsafeName) {
			t.Fatalf("start %d err = %v, want marker.ErrUnsafeName", id, err)
		}
		if f.status(t, id) != model.StatusRequested {
			t.Fatalf("client %d must stay REQUESTED", id)
		}
	}
	if f.markerOwner(t, oibA) != 0 || f.markerOwner(t, oibB) != 0 {
		t.Fatal("no marker may be written for unsafe names")
	}
	if len(f.notifier.events) != 0 {
		t.Fatalf("unexpected notifications %+v", f.notifier.events)
	}
}
