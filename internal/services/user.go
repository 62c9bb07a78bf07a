package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-users/internal/logger"
	"github.com/sbilibin2017/gw-users/internal/models"
	"github.com/sbilibin2017/gw-users/internal/repositories"
	"github.com/segmentio/kafka-go"
)

//go:generate mockgen -source=user.go -destination=mock_user.go -package=services

var (
	// ErrUserAlreadyExists is returned when the login name is already taken.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrUserNotFound is returned when no user has the requested id.
	ErrUserNotFound = errors.New("user not found")
	// ErrInternal wraps every other persistence or hashing failure.
	ErrInternal = errors.New("internal error")
)

// UserReader defines methods for reading users.
type UserReader interface {
	List(ctx context.Context) ([]*models.UserDB, error)        // Returns every user
	Get(ctx context.Context, id int64) (*models.UserDB, error) // Returns a user by id
}

// UserWriter defines methods for storing users.
type UserWriter interface {
	Add(ctx context.Context, user *models.UserDB) (*models.UserDB, error)    // Inserts a user
	Update(ctx context.Context, user *models.UserDB) (*models.UserDB, error) // Overwrites a user
	Delete(ctx context.Context, id int64) error                              // Removes a user
}

// PasswordHasher hashes plaintext passwords.
type PasswordHasher interface {
	Hash(password string) (string, error) // Returns "<salt_hex>$<digest_hex>"
}

// KafkaWriter defines a Kafka writer abstraction.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error // Writes messages to Kafka
	Close() error                                                   // Closes the Kafka writer
}

// AfterCommitFunc defers fn until the transaction carried by ctx commits.
type AfterCommitFunc func(ctx context.Context, fn func())

// UserService implements the user use cases on top of the repository.
type UserService struct {
	reader      UserReader
	writer      UserWriter
	hasher      PasswordHasher
	kafkaWriter KafkaWriter
	afterCommit AfterCommitFunc
	now         func() time.Time
}

// NewUserService creates a new UserService. kafkaWriter may be nil.
// Events are published through afterCommit; when it is nil they are
// published right away.
func NewUserService(
	reader UserReader,
	writer UserWriter,
	hasher PasswordHasher,
	kafkaWriter KafkaWriter,
	afterCommit AfterCommitFunc,
) *UserService {
	if afterCommit == nil {
		afterCommit = func(_ context.Context, fn func()) { fn() }
	}
	return &UserService{
		reader:      reader,
		writer:      writer,
		hasher:      hasher,
		kafkaWriter: kafkaWriter,
		afterCommit: afterCommit,
		now:         time.Now,
	}
}

// ListUsers returns every user. An empty table yields an empty slice.
func (s *UserService) ListUsers(ctx context.Context) ([]models.UserResponse, error) {
	users, err := s.reader.List(ctx)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		logger.FromContext(ctx).Errorw("failed to list users", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	result := make([]models.UserResponse, 0, len(users))
	for _, u := range users {
		result = append(result, u.ToResponse())
	}
	return result, nil
}

// CreateUser hashes the password and stores a new user.
func (s *UserService) CreateUser(ctx context.Context, in models.UserCreate) (*models.UserResponse, error) {
	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		logger.FromContext(ctx).Errorw("failed to hash password", "name", in.Name, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	created, err := s.writer.Add(ctx, &models.UserDB{
		Name:     in.Name,
		Sername:  in.Sername,
		Password: hashed,
	})
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			logger.FromContext(ctx).Infow("user already exists", "name", in.Name)
			return nil, ErrUserAlreadyExists
		}
		logger.FromContext(ctx).Errorw("failed to create user", "name", in.Name, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	s.publishEvent(ctx, models.UserCreated, created)

	resp := created.ToResponse()
	return &resp, nil
}

// GetUser returns the user with the given id.
func (s *UserService) GetUser(ctx context.Context, id int64) (*models.UserResponse, error) {
	user, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := user.ToResponse()
	return &resp, nil
}

// UpdateUser applies the non-empty fields of in to the user and refreshes
// updated_at. A new password is hashed before it is stored.
func (s *UserService) UpdateUser(ctx context.Context, id int64, in models.UserUpdate) (*models.UserResponse, error) {
	user, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if isSet(in.Name) {
		user.Name = *in.Name
	}
	if isSet(in.Sername) {
		user.Sername = *in.Sername
	}
	if isSet(in.Password) {
		hashed, err := s.hasher.Hash(*in.Password)
		if err != nil {
			logger.FromContext(ctx).Errorw("failed to hash password", "userID", id, "error", err)
			return nil, fmt.Errorf("%w: %w", ErrInternal, err)
		}
		user.Password = hashed
	}
	user.UpdatedAt = s.now().UTC()

	updated, err := s.writer.Update(ctx, user)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrDuplicateKey):
			logger.FromContext(ctx).Infow("user name already taken", "userID", id, "name", user.Name)
			return nil, ErrUserAlreadyExists
		case errors.Is(err, repositories.ErrNotFound):
			return nil, ErrUserNotFound
		}
		logger.FromContext(ctx).Errorw("failed to update user", "userID", id, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	s.publishEvent(ctx, models.UserUpdated, updated)

	resp := updated.ToResponse()
	return &resp, nil
}

// DeleteUser removes the user. Deleting a missing user is a no-op.
func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	user, err := s.get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil
		}
		return err
	}

	if err := s.writer.Delete(ctx, id); err != nil {
		logger.FromContext(ctx).Errorw("failed to delete user", "userID", id, "error", err)
		return fmt.Errorf("%w: %w", ErrInternal, err)
	}

	s.publishEvent(ctx, models.UserDeleted, user)
	return nil
}

func (s *UserService) get(ctx context.Context, id int64) (*models.UserDB, error) {
	user, err := s.reader.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		logger.FromContext(ctx).Errorw("failed to get user", "userID", id, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}
	return user, nil
}

// publishEvent schedules a user change event for after the commit.
func (s *UserService) publishEvent(ctx context.Context, operation string, user *models.UserDB) {
	event := models.UserEvent{
		EventID:   uuid.NewString(),
		Timestamp: s.now().Unix(),
		Operation: operation,
		UserID:    user.ID,
		Name:      user.Name,
	}
	s.afterCommit(ctx, func() { s.sendEvent(ctx, event) })
}

// sendEvent writes event to Kafka. Failures are logged only.
func (s *UserService) sendEvent(ctx context.Context, event models.UserEvent) {
	log := logger.FromContext(ctx)
	if s.kafkaWriter == nil {
		log.Debugw("Kafka writer not configured, skipping publishing", "operation", event.Operation, "userID", event.UserID)
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Errorw("Failed to marshal user event for Kafka", "event_id", event.EventID, "error", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(event.UserID, 10)),
		Value: data,
	}

	if err := s.kafkaWriter.WriteMessages(ctx, msg); err != nil {
		log.Errorw("Failed to publish user event to Kafka", "event_id", event.EventID, "operation", event.Operation, "error", err)
	} else {
		log.Infow("User event published to Kafka", "event_id", event.EventID, "operation", event.Operation, "userID", event.UserID)
	}
}

// isSet reports whether an optional update field carries a value.
// Empty strings count as absent.
func isSet(v *string) bool {
	return v != nil && *v != ""
}
