package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/matshelf/matshelf/pkg/api"
	"github.com/matshelf/matshelf/pkg/assets"
	"github.com/matshelf/matshelf/pkg/download"
	"github.com/matshelf/matshelf/pkg/errors"
	"github.com/matshelf/matshelf/pkg/hook"
	"github.com/matshelf/matshelf/pkg/index"
	"github.com/matshelf/matshelf/pkg/orchestrator/mocks"
)

type fetchCall struct {
	directory string
	spec      api.DownloadSpec
	isRetry   bool
}

type planFile struct {
	filename string
	size     int64
}

// fakeBackend serves scripted URL plans and writes real temp files, so the
// rename pass and the directory rescan run against actual disk state.
type fakeBackend struct {
	mu        sync.Mutex
	planFiles []planFile
	planErrs  []error          // consumed one per GetDownloadURLs call
	failURLs  map[string]error // URL -> error returned by DownloadFile
	calls     []fetchCall
	fetched   map[string]int // filename -> successful transfer count
	block     chan struct{}  // when set, transfers wait for close or cancel
}

func newFakeBackend(files ...planFile) *fakeBackend {
	return &fakeBackend{
		planFiles: files,
		failURLs:  map[string]error{},
		fetched:   map[string]int{},
	}
}

func (b *fakeBackend) GetDownloadURLs(_ context.Context, assetID int, directory string, spec api.DownloadSpec, isRetry bool) (*api.DownloadPlan, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, fetchCall{directory: directory, spec: spec, isRetry: isRetry})
	if len(b.planErrs) > 0 {
		err := b.planErrs[0]
		b.planErrs = b.planErrs[1:]
		if err != nil {
			return nil, err
		}
	}

	call := len(b.calls)
	plan := &api.DownloadPlan{AssetID: assetID}
	for _, file := range b.planFiles {
		url := fmt.Sprintf("v%d/%s", call, file.filename)
		plan.Downloads = append(plan.Downloads,
			download.NewFileDownload(url, file.filename, directory, file.size))
		plan.SizeTotal += file.size
	}
	return plan, nil
}

func (b *fakeBackend) DownloadFile(_ context.Context, file *download.FileDownload) error {
	if !file.MarkOngoing() {
		return nil
	}

	if b.block != nil {
		for {
			if file.Cancelled() {
				return errors.Wrapf(errors.ErrUserCancelled, "file %s", file.Filename)
			}
			select {
			case <-b.block:
			case <-time.After(2 * time.Millisecond):
				continue
			}
			break
		}
	}

	b.mu.Lock()
	failErr := b.failURLs[file.URL]
	b.mu.Unlock()
	if failErr != nil {
		return failErr
	}

	if err := os.WriteFile(file.TempPath(), make([]byte, file.SizeExpected), 0o644); err != nil {
		return errors.Wrap(errors.ErrWriteFailed, err.Error())
	}
	file.SetDownloaded(file.SizeExpected)
	file.MarkDone()

	b.mu.Lock()
	b.fetched[file.Filename]++
	b.mu.Unlock()
	return nil
}

func (b *fakeBackend) fetchCalls() []fetchCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]fetchCall(nil), b.calls...)
}

func newTestIndex(t *testing.T) *index.AssetIndex {
	t.Helper()
	idx := index.NewAssetIndex("")
	asset, err := index.ConstructAsset(&api.AssetRecord{
		ID: 100, Name: "Metal001", Type: "Texture",
		Sizes: []string{"1K", "2K", "4K"},
		Workflows: map[string][]api.MapDescRecord{
			"REGULAR": {
				{TypeCode: "COL", Sizes: []string{"1K", "2K", "4K"}},
				{TypeCode: "NRM", Sizes: []string{"1K", "2K", "4K"}},
			},
		},
	})
	require.NoError(t, err)
	require.NoError(t, idx.LoadAsset(asset))
	return idx
}

func fastOptions(library string) Options {
	return Options{
		MaxAssetDownloads: 2,
		WorkersPerAsset:   2,
		PollInterval:      2 * time.Millisecond,
		LibraryPaths:      []string{library},
	}
}

func TestDownloadAssetSuccess(t *testing.T) {
	library := t.TempDir()
	idx := newTestIndex(t)
	backend := newFakeBackend(
		planFile{filename: "Metal001_COL_2K.jpg", size: 64},
		planFile{filename: "Metal001_NRM_2K.jpg", size: 128},
	)

	var doneErr error
	var progressed bool
	var mu sync.Mutex
	o := New(backend, idx, fastOptions(library), Callbacks{
		OnProgress: func(assetID int, downloaded, total int64) {
			mu.Lock()
			progressed = true
			mu.Unlock()
		},
		OnDone: func(assetID int, err error) {
			mu.Lock()
			doneErr = err
			mu.Unlock()
		},
	})

	require.NoError(t, o.DownloadAsset(context.Background(), 100, Request{Sizes: []string{"2K"}}))

	assetDir := filepath.Join(library, "Metal001")
	for _, name := range []string{"Metal001_COL_2K.jpg", "Metal001_NRM_2K.jpg"} {
		info, err := os.Stat(filepath.Join(assetDir, name))
		require.NoError(t, err)
		assert.Positive(t, info.Size())
		assert.NoFileExists(t, filepath.Join(assetDir, name+download.TempSuffix))
	}

	calls := backend.fetchCalls()
	require.Len(t, calls, 1)
	assert.False(t, calls[0].isRetry)
	assert.Equal(t, []string{"2K"}, calls[0].spec.Sizes)
	assert.Equal(t, assetDir, calls[0].directory)

	asset, err := idx.GetAsset(100)
	require.NoError(t, err)
	assert.True(t, asset.Local())
	assert.True(t, asset.LocalSizes(false)["2K"])

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, progressed)
	assert.NoError(t, doneErr)
	assert.False(t, o.IsQueued(100))
}

func TestDownloadAssetSizeFallback(t *testing.T) {
	library := t.TempDir()
	idx := newTestIndex(t)
	backend := newFakeBackend(planFile{filename: "Metal001_COL_4K.jpg", size: 32})

	o := New(backend, idx, fastOptions(library), Callbacks{})
	require.NoError(t, o.DownloadAsset(context.Background(), 100, Request{Sizes: []string{"8K"}}))

	calls := backend.fetchCalls()
	require.Len(t, calls, 1)
	// 8K is not available, the largest available size takes its place.
	assert.Equal(t, []string{"4K"}, calls[0].spec.Sizes)
}

func TestDownloadAssetExpiredURLRefetch(t *testing.T) {
	library := t.TempDir()
	idx := newTestIndex(t)
	backend := newFakeBackend(
		planFile{filename: "Metal001_COL_2K.jpg", size: 16},
		planFile{filename: "Metal001_NRM_2K.jpg", size: 32},
	)
	// Every transfer attempt on the first plan's NRM URL expires; the COL
	// file finishes before the failure surfaces.
	backend.failURLs["v1/Metal001_NRM_2K.jpg"] = errors.ErrURLExpired

	opts := fastOptions(library)
	opts.WorkersPerAsset = 1
	o := New(backend, idx, opts, Callbacks{})

	require.NoError(t, o.DownloadAsset(context.Background(), 100, Request{Sizes: []string{"2K"}}))

	calls := backend.fetchCalls()
	require.Len(t, calls, 2)
	assert.False(t, calls[0].isRetry)
	assert.True(t, calls[1].isRetry)

	// The finished file was not transferred again on the second plan.
	assert.Equal(t, 1, backend.fetched["Metal001_COL_2K.jpg"])
	assert.Equal(t, 1, backend.fetched["Metal001_NRM_2K.jpg"])
	assert.FileExists(t, filepath.Join(library, "Metal001", "Metal001_NRM_2K.jpg"))
}

func TestDownloadAssetUnrecoverableError(t *testing.T) {
	library := t.TempDir()
	idx := newTestIndex(t)
	backend := newFakeBackend(planFile{filename: "Metal001_COL_2K.jpg", size: 16})
	backend.failURLs["v1/Metal001_COL_2K.jpg"] = errors.ErrNoSpace

	o := New(backend, idx, fastOptions(library), Callbacks{})
	err := o.DownloadAsset(context.Background(), 100, Request{Sizes: []string{"2K"}})

	assert.ErrorIs(t, err, errors.ErrNoSpace)
	// A full disk is not worth a second URL plan.
	assert.Len(t, backend.fetchCalls(), 1)
}

func TestDownloadAssetRetryableURLFetch(t *testing.T) {
	library := t.TempDir()
	idx := newTestIndex(t)
	backend := newFakeBackend(planFile{filename: "Metal001_COL_2K.jpg", size: 16})
	backend.planErrs = []error{errors.ErrConnection, nil}

	o := New(backend, idx, fastOptions(library), Callbacks{})
	require.NoError(t, o.DownloadAsset(context.Background(), 100, Request{Sizes: []string{"2K"}}))

	calls := backend.fetchCalls()
	require.Len(t, calls, 2)
	assert.True(t, calls[1].isRetry)
}

func TestDownloadAssetCancelViaCallback(t *testing.T) {
	library := t.TempDir()
	idx := newTestIndex(t)
	backend := newFakeBackend(planFile{filename: "Metal001_COL_2K.jpg", size: 16})

	o := New(backend, idx, fastOptions(library), Callbacks{
		ShouldContinue: func(assetID int) bool { return false },
	})
	err := o.DownloadAsset(context.Background(), 100, Request{})

	assert.ErrorIs(t, err, errors.ErrUserCancelled)
	assert.Empty(t, backend.fetchCalls())
}

func TestDownloadAssetCancelInFlight(t *testing.T) {
	library := t.TempDir()
	idx := newTestIndex(t)
	backend := newFakeBackend(planFile{filename: "Metal001_COL_2K.jpg", size: 16})
	backend.block = make(chan struct{})

	o := New(backend, idx, fastOptions(library), Callbacks{})

	result := make(chan error, 1)
	go func() {
		result <- o.DownloadAsset(context.Background(), 100, Request{Sizes: []string{"2K"}})
	}()

	require.Eventually(t, func() bool {
		return o.IsQueued(100)
	}, time.Second, time.Millisecond)
	// Give the transfer a moment to enter the blocked fetch.
	time.Sleep(20 * time.Millisecond)
	o.CancelDownload(100)

	select {
	case err := <-result:
		assert.ErrorIs(t, err, errors.ErrUserCancelled)
	case <-time.After(5 * time.Second):
		t.Fatal("download did not cancel")
	}
	assert.NoFileExists(t, filepath.Join(library, "Metal001", "Metal001_COL_2K.jpg"))
}

func TestDownloadAssetAlreadyQueued(t *testing.T) {
	library := t.TempDir()
	idx := newTestIndex(t)
	backend := newFakeBackend(planFile{filename: "Metal001_COL_2K.jpg", size: 16})
	backend.block = make(chan struct{})

	var doneCalls atomic.Int32
	o := New(backend, idx, fastOptions(library), Callbacks{
		OnDone: func(int, error) { doneCalls.Add(1) },
	})

	result := make(chan error, 1)
	go func() {
		result <- o.DownloadAsset(context.Background(), 100, Request{Sizes: []string{"2K"}})
	}()
	require.Eventually(t, func() bool {
		return o.IsQueued(100)
	}, time.Second, time.Millisecond)

	// Second request for the same asset is a no-op and fires no callback.
	require.NoError(t, o.DownloadAsset(context.Background(), 100, Request{Sizes: []string{"2K"}}))

	close(backend.block)
	require.NoError(t, <-result)
	assert.Len(t, backend.fetchCalls(), 1)
	assert.Equal(t, int32(1), doneCalls.Load())
}

func TestDownloadAssetExistingDirectoryWins(t *testing.T) {
	primary := t.TempDir()
	secondary := t.TempDir()
	existing := filepath.Join(secondary, "Metal001")
	require.NoError(t, os.MkdirAll(existing, 0o755))

	idx := newTestIndex(t)
	backend := newFakeBackend(planFile{filename: "Metal001_COL_2K.jpg", size: 16})

	opts := fastOptions(primary)
	opts.LibraryPaths = []string{primary, secondary}
	o := New(backend, idx, opts, Callbacks{})

	require.NoError(t, o.DownloadAsset(context.Background(), 100, Request{Sizes: []string{"2K"}}))

	assert.FileExists(t, filepath.Join(existing, "Metal001_COL_2K.jpg"))
	assert.NoDirExists(t, filepath.Join(primary, "Metal001"))
}

func TestDownloadAssetExistingFinalFileKept(t *testing.T) {
	library := t.TempDir()
	assetDir := filepath.Join(library, "Metal001")
	require.NoError(t, os.MkdirAll(assetDir, 0o755))
	finalPath := filepath.Join(assetDir, "Metal001_COL_2K.jpg")
	require.NoError(t, os.WriteFile(finalPath, []byte("already here"), 0o644))

	idx := newTestIndex(t)
	backend := newFakeBackend(planFile{filename: "Metal001_COL_2K.jpg", size: 16})

	o := New(backend, idx, fastOptions(library), Callbacks{})
	require.NoError(t, o.DownloadAsset(context.Background(), 100, Request{Sizes: []string{"2K"}}))

	data, err := os.ReadFile(finalPath)
	require.NoError(t, err)
	assert.Equal(t, "already here", string(data))
	assert.NoFileExists(t, finalPath+download.TempSuffix)
}

func TestDownloadAssetRunsHooks(t *testing.T) {
	library := t.TempDir()
	idx := newTestIndex(t)
	backend := newFakeBackend(planFile{filename: "Metal001_COL_2K.jpg", size: 16})

	hooks := hook.NewExecutor()
	hooks.AddScript(hook.PreDownload, `err := ""`)
	// A failing hook never fails the download.
	hooks.AddScript(hook.PostDownload, `err := "refusing"`)

	opts := fastOptions(library)
	opts.Hooks = hooks
	o := New(backend, idx, opts, Callbacks{})

	assert.NoError(t, o.DownloadAsset(context.Background(), 100, Request{Sizes: []string{"2K"}}))
}

func TestDownloadAssetRescansOnFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)
	mockIndex := mocks.NewMockIndex(ctrl)

	idx := newTestIndex(t)
	asset, err := idx.GetAsset(100)
	require.NoError(t, err)

	library := t.TempDir()
	assetDir := filepath.Join(library, "Metal001")

	mockIndex.EXPECT().GetAsset(100).Return(asset, nil)
	backend.EXPECT().
		GetDownloadURLs(gomock.Any(), 100, assetDir, gomock.Any(), false).
		Return(nil, errors.ErrNotAuthorized)
	// The rescan runs even when the download never started a transfer.
	mockIndex.EXPECT().UpdateFromDirectory(100, assetDir).Return(nil)

	o := New(backend, mockIndex, fastOptions(library), Callbacks{})
	err = o.DownloadAsset(context.Background(), 100, Request{Sizes: []string{"2K"}})
	assert.ErrorIs(t, err, errors.ErrNotAuthorized)
}

func TestResolveSizesKeepsRequestedOrder(t *testing.T) {
	idx := newTestIndex(t)
	asset, err := idx.GetAsset(100)
	require.NoError(t, err)

	o := New(newFakeBackend(), idx, fastOptions(t.TempDir()), Callbacks{})
	assert.Equal(t, []string{"4K", "1K"}, o.resolveSizes(asset, []string{"4K", "8K", "1K"}))
	assert.Equal(t, []string{"4K"}, o.resolveSizes(asset, []string{"HIRES"}))

	// No size information on the asset leaves the request untouched.
	bare := &assets.AssetData{AssetID: 1, AssetName: "Bare", AssetType: assets.AssetTexture, Texture: &assets.Texture{}}
	assert.Equal(t, []string{"2K"}, o.resolveSizes(bare, []string{"2K"}))
}
