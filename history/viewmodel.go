package history

import (
	"context"
	"sync"

	"github.com/apex/log"

	"github.com/saiganesh141124/flora-intel/models"
	"github.com/saiganesh141124/flora-intel/pubsub"
)

// ViewModel maintains a live, principal-scoped snapshot of the history list
// plus a single selected-detail projection. On every change event it
// re-fetches the whole list and swaps it in atomically, so viewers only ever
// see fully consistent snapshots.
type ViewModel struct {
	store       *Store
	principalID string

	mu         sync.RWMutex
	records    []models.AnalysisRecord
	selectedID string

	sub      *pubsub.Subscription
	onUpdate func()
	stopOnce sync.Once
	done     chan struct{}
	stopped  chan struct{}
}

// NewViewModel creates a view model for one principal. Call Start to load
// the initial snapshot and begin following changes.
func NewViewModel(store *Store, principalID string) *ViewModel {
	return &ViewModel{
		store:       store,
		principalID: principalID,
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}
}

// SetOnUpdate registers a callback invoked after every snapshot swap. Set it
// before Start.
func (vm *ViewModel) SetOnUpdate(fn func()) {
	vm.onUpdate = fn
}

// Start loads the initial list and subscribes to change events.
func (vm *ViewModel) Start(ctx context.Context) error {
	if err := vm.refresh(ctx); err != nil {
		return err
	}

	vm.sub = vm.store.Subscribe(vm.principalID)
	go vm.follow()
	return nil
}

// follow re-fetches the full list on every event. No incremental diffing:
// the volumes are small and replace-on-change cannot show stale partial
// state.
func (vm *ViewModel) follow() {
	defer close(vm.stopped)
	for {
		select {
		case <-vm.done:
			return
		case _, ok := <-vm.sub.C:
			if !ok {
				return
			}
			if err := vm.refresh(context.Background()); err != nil {
				log.Errorf("Failed to refresh history for %s: %v", vm.principalID, err)
			}
		}
	}
}

func (vm *ViewModel) refresh(ctx context.Context) error {
	records, err := vm.store.List(ctx, vm.principalID)
	if err != nil {
		return err
	}

	vm.mu.Lock()
	vm.records = records
	// Keep the selection only while the record still exists.
	if vm.selectedID != "" && vm.findLocked(vm.selectedID) == nil {
		vm.selectedID = ""
	}
	vm.mu.Unlock()

	if vm.onUpdate != nil {
		vm.onUpdate()
	}
	return nil
}

// Records returns the current snapshot.
func (vm *ViewModel) Records() []models.AnalysisRecord {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	out := make([]models.AnalysisRecord, len(vm.records))
	copy(out, vm.records)
	return out
}

// Select marks one record as the detail projection. Selection is a pure
// read: it touches only this view model, never the store.
func (vm *ViewModel) Select(recordID string) {
	vm.mu.Lock()
	vm.selectedID = recordID
	vm.mu.Unlock()
}

// ClearSelection drops the detail projection.
func (vm *ViewModel) ClearSelection() {
	vm.Select("")
}

// SelectedDetail returns the selected record from the current snapshot, or
// nil when nothing is selected or the record is gone.
func (vm *ViewModel) SelectedDetail() *models.AnalysisRecord {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if vm.selectedID == "" {
		return nil
	}
	return vm.findLocked(vm.selectedID)
}

func (vm *ViewModel) findLocked(recordID string) *models.AnalysisRecord {
	for i := range vm.records {
		if vm.records[i].ID == recordID {
			record := vm.records[i]
			return &record
		}
	}
	return nil
}

// Close stops following changes and waits for any in-flight refresh to
// finish, so no update callback fires after it returns. Must not be called
// from inside the update callback.
func (vm *ViewModel) Close() {
	vm.stopOnce.Do(func() {
		close(vm.done)
		if vm.sub != nil {
			vm.sub.Unsubscribe()
			<-vm.stopped
		}
	})
}
