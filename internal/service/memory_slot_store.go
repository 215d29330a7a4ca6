package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemorySlotStore хранит занятые слоты в памяти процесса.
// Операции по одному врачу сериализуются его мьютексом.
type MemorySlotStore struct {
	mu      sync.Mutex
	doctors map[uuid.UUID]*doctorSlots
}

type doctorSlots struct {
	mu    sync.Mutex
	dates map[string]map[string]struct{}
}

func NewMemorySlotStore() *MemorySlotStore {
	return &MemorySlotStore{doctors: make(map[uuid.UUID]*doctorSlots)}
}

func (s *MemorySlotStore) doctor(id uuid.UUID) *doctorSlots {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.doctors[id]
	if !ok {
		d = &doctorSlots{dates: make(map[string]map[string]struct{})}
		s.doctors[id] = d
	}
	return d
}

func (s *MemorySlotStore) IsFree(_ context.Context, doctorID uuid.UUID, date, slotTime string) (bool, error) {
	d := s.doctor(doctorID)
	d.mu.Lock()
	defer d.mu.Unlock()

	_, taken := d.dates[date][slotTime]
	return !taken, nil
}

func (s *MemorySlotStore) Reserve(_ context.Context, doctorID uuid.UUID, date, slotTime string) error {
	d := s.doctor(doctorID)
	d.mu.Lock()
	defer d.mu.Unlock()

	times, ok := d.dates[date]
	if !ok {
		times = make(map[string]struct{})
		d.dates[date] = times
	}
	if _, taken := times[slotTime]; taken {
		return fmt.Errorf("%w: %s %s", ErrSlotConflict, date, slotTime)
	}
	times[slotTime] = struct{}{}
	return nil
}

func (s *MemorySlotStore) Release(_ context.Context, doctorID uuid.UUID, date, slotTime string) error {
	d := s.doctor(doctorID)
	d.mu.Lock()
	defer d.mu.Unlock()

	times, ok := d.dates[date]
	if !ok {
		return nil
	}
	delete(times, slotTime)
	if len(times) == 0 {
		delete(d.dates, date)
	}
	return nil
}

func (s *MemorySlotStore) Booked(_ context.Context, doctorID uuid.UUID, date string) ([]string, error) {
	d := s.doctor(doctorID)
	d.mu.Lock()
	defer d.mu.Unlock()

	result := make([]string, 0, len(d.dates[date]))
	for t := range d.dates[date] {
		result = append(result, t)
	}
	sort.Strings(result)
	return result, nil
}
