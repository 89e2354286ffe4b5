package schedules

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"carelink-service/internal/app/models"
	"carelink-service/internal/pkg/exceptions"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memoryScheduleRepository mimics the conditional single-document
// update: the flip succeeds for exactly one caller under the lock.
type memoryScheduleRepository struct {
	mu    sync.Mutex
	slots map[string]*models.Slot
}

func newMemoryScheduleRepository(slots ...models.Slot) *memoryScheduleRepository {
	repo := &memoryScheduleRepository{slots: make(map[string]*models.Slot)}
	for i := range slots {
		slot := slots[i]
		repo.slots[slot.ID] = &slot
	}
	return repo
}

func (r *memoryScheduleRepository) FindSlot(ctx context.Context, doctorID, slotID string) (*models.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok := r.slots[slotID]
	if !ok {
		return nil, nil
	}
	copied := *slot
	return &copied, nil
}

func (r *memoryScheduleRepository) MarkSlotBooked(ctx context.Context, doctorID, slotID, patientID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok := r.slots[slotID]
	if !ok || slot.IsBooked {
		return false, nil
	}
	slot.IsBooked = true
	slot.BookedBy = patientID
	slot.BookedAt = &at
	return true, nil
}

func (r *memoryScheduleRepository) ReleaseSlot(ctx context.Context, doctorID, slotID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slot, ok := r.slots[slotID]; ok {
		slot.IsBooked = false
		slot.BookedBy = ""
		slot.BookedAt = nil
	}
	return nil
}

func (r *memoryScheduleRepository) AddSlots(ctx context.Context, doctorID string, slots []models.Slot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range slots {
		slot := slots[i]
		r.slots[slot.ID] = &slot
	}
	return nil
}

func (r *memoryScheduleRepository) FindFreeSlots(ctx context.Context, doctorID string) ([]models.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var free []models.Slot
	for _, slot := range r.slots {
		if !slot.IsBooked {
			free = append(free, *slot)
		}
	}
	return free, nil
}

// stubOverlapChecker satisfies only the overlap lookup; the reserver
// never touches the other repository methods.
type stubOverlapChecker struct {
	overlap bool
}

func (s *stubOverlapChecker) Create(ctx context.Context, appointment *models.Appointment) (string, error) {
	return "", errors.New("not implemented")
}
func (s *stubOverlapChecker) FindByID(ctx context.Context, appointmentID string) (*models.Appointment, error) {
	return nil, errors.New("not implemented")
}
func (s *stubOverlapChecker) FindOwned(ctx context.Context, appointmentID, ownerField, ownerID string) (*models.Appointment, error) {
	return nil, errors.New("not implemented")
}
func (s *stubOverlapChecker) HasActiveOverlap(ctx context.Context, partyField, partyID string, start, end time.Time, excludeID string) (bool, error) {
	return s.overlap, nil
}
func (s *stubOverlapChecker) MarkAccepted(ctx context.Context, appointmentID, doctorID string) (*models.Appointment, error) {
	return nil, errors.New("not implemented")
}
func (s *stubOverlapChecker) MarkCancelled(ctx context.Context, appointmentID string, allowed []models.AppointmentStatus, ownerField, ownerID string, record models.CancellationRecord) (*models.Appointment, error) {
	return nil, errors.New("not implemented")
}
func (s *stubOverlapChecker) MarkPaymentPending(ctx context.Context, appointmentID, patientID string) (*models.Appointment, error) {
	return nil, errors.New("not implemented")
}
func (s *stubOverlapChecker) MarkConfirmed(ctx context.Context, appointmentID string) (*models.Appointment, error) {
	return nil, errors.New("not implemented")
}
func (s *stubOverlapChecker) MarkCompleted(ctx context.Context, appointmentID, doctorID string, status models.AppointmentStatus) (*models.Appointment, error) {
	return nil, errors.New("not implemented")
}
func (s *stubOverlapChecker) ReplaceWindow(ctx context.Context, appointmentID, slotID, date string, start, end time.Time) (*models.Appointment, error) {
	return nil, errors.New("not implemented")
}
func (s *stubOverlapChecker) AppendReschedule(ctx context.Context, appointmentID string, allowed []models.AppointmentStatus, entry models.RescheduleEntry) (*models.Appointment, error) {
	return nil, errors.New("not implemented")
}
func (s *stubOverlapChecker) ResolveReschedule(ctx context.Context, appointmentID, requestedBy string, requestedAt time.Time, approve bool, respondedAt time.Time) (*models.Appointment, error) {
	return nil, errors.New("not implemented")
}
func (s *stubOverlapChecker) ReinstateCancelled(ctx context.Context, appointmentID string, status models.AppointmentStatus) (*models.Appointment, error) {
	return nil, errors.New("not implemented")
}

type inlineCoordinator struct{}

func (c *inlineCoordinator) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (c *inlineCoordinator) WithCompensation(ctx context.Context, action func(ctx context.Context) error, compensate func(ctx context.Context) error) error {
	err := action(ctx)
	if err != nil {
		_ = compensate(ctx)
	}
	return err
}

func testSlot() models.Slot {
	return models.Slot{
		ID:        "11111111-1111-1111-1111-111111111111",
		Date:      "2026-04-01",
		StartTime: "09:00",
		EndTime:   "09:30",
	}
}

func TestSlotReserver_ConcurrentReserveAdmitsExactlyOne(t *testing.T) {
	repo := newMemoryScheduleRepository(testSlot())
	reserver := &slotReserver{
		ScheduleRepository:    repo,
		AppointmentRepository: &stubOverlapChecker{},
		Coordinator:           &inlineCoordinator{},
		Log:                   zap.NewNop(),
	}

	const callers = 32
	var wg sync.WaitGroup
	results := make(chan error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reserver.Reserve(context.Background(), "doc-1", testSlot().ID, "pat-1", "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, conflicted int
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var customErr *exceptions.CustomError
		require.ErrorAs(t, err, &customErr)
		assert.Equal(t, 409, customErr.StatusCode)
		conflicted++
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, callers-1, conflicted)

	slot, err := repo.FindSlot(context.Background(), "doc-1", testSlot().ID)
	require.NoError(t, err)
	assert.True(t, slot.IsBooked)
}

func TestSlotReserver_OverlapRollsBackTheFlip(t *testing.T) {
	repo := newMemoryScheduleRepository(testSlot())
	reserver := &slotReserver{
		ScheduleRepository:    repo,
		AppointmentRepository: &stubOverlapChecker{overlap: true},
		Coordinator:           &inlineCoordinator{},
		Log:                   zap.NewNop(),
	}

	_, err := reserver.Reserve(context.Background(), "doc-1", testSlot().ID, "pat-1", "")
	require.Error(t, err)

	var customErr *exceptions.CustomError
	require.ErrorAs(t, err, &customErr)
	assert.Equal(t, 409, customErr.StatusCode)

	// The compensating release must leave the slot bookable again.
	slot, findErr := repo.FindSlot(context.Background(), "doc-1", testSlot().ID)
	require.NoError(t, findErr)
	assert.False(t, slot.IsBooked)
}

func TestSlotReserver_UnknownSlotIsNotFound(t *testing.T) {
	repo := newMemoryScheduleRepository()
	reserver := &slotReserver{
		ScheduleRepository:    repo,
		AppointmentRepository: &stubOverlapChecker{},
		Coordinator:           &inlineCoordinator{},
		Log:                   zap.NewNop(),
	}

	_, err := reserver.Reserve(context.Background(), "doc-1", "missing-slot", "pat-1", "")
	require.Error(t, err)

	var customErr *exceptions.CustomError
	require.ErrorAs(t, err, &customErr)
	assert.Equal(t, 404, customErr.StatusCode)
}
