package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVersionSource struct {
	version int
	err     error
}

func (f *fakeVersionSource) CurrentVersion(ctx context.Context) (int, error) {
	return f.version, f.err
}

func TestSchemaHandleSwap(t *testing.T) {
	first := NewGraphSchema(1, "graph")
	handle := NewSchemaHandle(first)
	assert.Same(t, first, handle.Load())

	second := NewGraphSchema(2, "graph")
	handle.Swap(second)
	assert.Same(t, second, handle.Load())
}

func TestRefresherSkipsWhenVersionUnchanged(t *testing.T) {
	handle := NewSchemaHandle(NewGraphSchema(1, "graph"))
	versions := &fakeVersionSource{version: 1}
	loadCount := 0
	loader := LoaderFunc(func(ctx context.Context) (*LoadResult, error) {
		loadCount++
		return &LoadResult{Schema: NewGraphSchema(1, "graph")}, nil
	})

	r := NewRefresher(handle, versions, loader, time.Hour)
	r.lastVersion = 1
	r.tick(context.Background())

	assert.Equal(t, 0, loadCount)
}

func TestRefresherReloadsOnVersionChange(t *testing.T) {
	handle := NewSchemaHandle(NewGraphSchema(1, "graph"))
	versions := &fakeVersionSource{version: 2}
	loader := LoaderFunc(func(ctx context.Context) (*LoadResult, error) {
		return &LoadResult{Schema: NewGraphSchema(2, "graph"), Warnings: []string{"w"}}, nil
	})

	var succeeded bool
	var gotWarnings []string
	observer := &recordingObserver{
		onSucceeded: func(version int, warnings []string) {
			succeeded = true
			gotWarnings = warnings
		},
	}

	r := NewRefresher(handle, versions, loader, time.Hour)
	r.Observer = observer
	r.lastVersion = 1
	r.tick(context.Background())

	require.True(t, succeeded)
	assert.Equal(t, []string{"w"}, gotWarnings)
	assert.Equal(t, 2, handle.Load().Version)
}

func TestRefresherReportsVersionSourceFailure(t *testing.T) {
	handle := NewSchemaHandle(NewGraphSchema(1, "graph"))
	versions := &fakeVersionSource{err: assertionError{"boom"}}
	loader := LoaderFunc(func(ctx context.Context) (*LoadResult, error) {
		t.Fatal("loader should not be called when version source fails")
		return nil, nil
	})

	var failed bool
	observer := &recordingObserver{onFailed: func(err error) { failed = true }}

	r := NewRefresher(handle, versions, loader, time.Hour)
	r.Observer = observer
	r.tick(context.Background())

	assert.True(t, failed)
}

type recordingObserver struct {
	onSkipped   func(int)
	onSucceeded func(int, []string)
	onFailed    func(error)
}

func (r *recordingObserver) OnRefreshSkipped(version int) {
	if r.onSkipped != nil {
		r.onSkipped(version)
	}
}

func (r *recordingObserver) OnRefreshSucceeded(version int, warnings []string) {
	if r.onSucceeded != nil {
		r.onSucceeded(version, warnings)
	}
}

func (r *recordingObserver) OnRefreshFailed(err error) {
	if r.onFailed != nil {
		r.onFailed(err)
	}
}

type assertionError struct{ msg string }

func (a assertionError) Error() string { return a.msg }
