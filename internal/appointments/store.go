package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/docbook-core-poc-v1/server/internal/agent/model"
	errx "github.com/docbook-core-poc-v1/server/internal/core/error"
	logx "github.com/docbook-core-poc-v1/server/pkg/logger"
)

// Store persists booked appointments.
type Store interface {
	Save(ctx context.Context, appt model.Appointment) (model.Appointment, error)
	// List returns appointments in booking order. A non-empty doctor filters
	// case-insensitively by doctor name.
	List(ctx context.Context, doctor string) ([]model.Appointment, error)
}

// FileStore keeps appointments as a JSON array in a single file. Writes are
// serialised and replace the file atomically.
type FileStore struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

var _ Store = (*FileStore)(nil)

// NewFileStore opens path, creating it as an empty array when missing.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("appointments file path cannot be empty")
	}
	s := &FileStore{path: path, now: time.Now}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errx.WrapStorage(fmt.Errorf("create appointments dir: %w", err))
		}
		if err := s.write(nil); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, errx.WrapStorage(fmt.Errorf("stat appointments file: %w", err))
	}
	return s, nil
}

// Seed writes the given appointments when the file holds none yet.
func (s *FileStore) Seed(ctx context.Context, appts []model.Appointment) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.read()
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	for i := range appts {
		if appts[i].CreatedAt.IsZero() {
			appts[i].CreatedAt = s.now().UTC()
		}
	}
	return len(appts), s.write(appts)
}

func (s *FileStore) Save(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return model.Appointment{}, err
	}
	appt.Doctor = strings.TrimSpace(appt.Doctor)
	appt.Patient = strings.TrimSpace(appt.Patient)
	appt.Date = strings.TrimSpace(appt.Date)
	appt.Time = strings.TrimSpace(appt.Time)
	if appt.Doctor == "" || appt.Patient == "" || appt.Date == "" || appt.Time == "" {
		return model.Appointment{}, errx.Validation("doctor, patient, date and time are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return model.Appointment{}, err
	}

	appt.ID = uuid.NewString()
	appt.CreatedAt = s.now().UTC()
	all = append(all, appt)

	if err := s.write(all); err != nil {
		return model.Appointment{}, err
	}
	logx.Info().
		Str("appointment_id", appt.ID).
		Str("doctor", appt.Doctor).
		Str("date", appt.Date).
		Str("time", appt.Time).
		Msg("appointment saved")
	return appt, nil
}

func (s *FileStore) List(ctx context.Context, doctor string) ([]model.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	all, err := s.read()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	doctor = strings.TrimSpace(doctor)
	if doctor == "" {
		return all, nil
	}
	out := make([]model.Appointment, 0, len(all))
	for _, a := range all {
		if strings.EqualFold(a.Doctor, doctor) {
			out = append(out, a)
		}
	}
	return out, nil
}

// read loads the file. Corrupt content is logged and treated as empty.
func (s *FileStore) read() ([]model.Appointment, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errx.WrapStorage(fmt.Errorf("read appointments: %w", err))
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return nil, nil
	}

	var all []model.Appointment
	if err := json.Unmarshal(b, &all); err != nil {
		logx.Warn().Err(err).Str("path", s.path).Msg("appointments file is corrupt, starting empty")
		return nil, nil
	}
	return all, nil
}

func (s *FileStore) write(all []model.Appointment) error {
	if all == nil {
		all = []model.Appointment{}
	}
	b, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return errx.WrapStorage(fmt.Errorf("encode appointments: %w", err))
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return errx.WrapStorage(fmt.Errorf("create temp file: %w", err))
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return errx.WrapStorage(fmt.Errorf("write temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return errx.WrapStorage(fmt.Errorf("close temp file: %w", err))
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errx.WrapStorage(fmt.Errorf("replace appointments file: %w", err))
	}
	return nil
}
