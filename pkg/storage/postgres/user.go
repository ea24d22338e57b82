package postgres

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/nsyszr/rtdb/pkg/model"
	"github.com/nsyszr/rtdb/pkg/storage"
	"github.com/pkg/errors"
)

func newUserStore(db *sqlx.DB) *userStore {
	return &userStore{
		db: db,
	}
}

type userStore struct {
	db *sqlx.DB
}

type sqlDataUser struct {
	ID           string         `db:"id"`
	Username     string         `db:"username"`
	Email        string         `db:"email"`
	PasswordHash string         `db:"password_hash"`
	FirstName    string         `db:"first_name"`
	LastName     string         `db:"last_name"`
	RoleIDs      pq.StringArray `db:"role_ids"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

var sqlParamsUser = []string{
	"id",
	"username",
	"email",
	"password_hash",
	"first_name",
	"last_name",
	"role_ids",
	"created_at",
	"updated_at",
}

func (d *sqlDataUser) Scan(m *model.User) error {
	var createdAt, updatedAt = m.CreatedAt, m.UpdatedAt

	if m.CreatedAt.IsZero() {
		createdAt = time.Now().Round(time.Second).UTC()
	}

	if m.UpdatedAt.IsZero() {
		updatedAt = time.Now().Round(time.Second).UTC()
	}

	d.ID = m.ID
	d.Username = m.Username
	d.Email = m.Email
	d.PasswordHash = m.PasswordHash
	d.FirstName = m.FirstName
	d.LastName = m.LastName
	d.RoleIDs = pq.StringArray(m.RoleIDs)
	d.CreatedAt = createdAt
	d.UpdatedAt = updatedAt

	return nil
}

func (d *sqlDataUser) Model() (*model.User, error) {
	m := &model.User{
		ID:           d.ID,
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		RoleIDs:      []string(d.RoleIDs),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}

	return m, nil
}

func (s *userStore) FetchAll() (map[string]model.User, error) {
	rows := make([]sqlDataUser, 0)
	models := make(map[string]model.User)

	query := "SELECT * FROM users"
	if err := s.db.Select(&rows, query); err != nil {
		return nil, errors.Wrap(err, "failed to fetch all users")
	}

	for _, d := range rows {
		m, err := d.Model()
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert SQL data to user model")
		}

		models[d.ID] = *m
	}

	return models, nil
}

func (s *userStore) FindByID(id string) (*model.User, error) {
	return s.findUserBy("id", id)
}

func (s *userStore) FindByUsername(username string) (*model.User, error) {
	return s.findUserBy("username", username)
}

func (s *userStore) FindByEmail(email string) (*model.User, error) {
	return s.findUserBy("email", email)
}

func (s *userStore) findUserBy(column, value string) (*model.User, error) {
	d := sqlDataUser{}
	query := fmt.Sprintf("SELECT * FROM users WHERE %s=$1", column)
	if err := s.db.Get(&d, query, value); err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find user")
	}

	return d.Model()
}

func (s *userStore) Create(m *model.User) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}

	d := sqlDataUser{}
	if err := d.Scan(m); err != nil {
		return errors.Wrap(err, "failed to convert user model to SQL data")
	}

	query := fmt.Sprintf(
		"INSERT INTO users (%s) VALUES (%s)",
		strings.Join(sqlParamsUser, ", "),
		":"+strings.Join(sqlParamsUser, ", :"),
	)
	if _, err := s.db.NamedExec(query, d); err != nil {
		return errors.Wrap(err, "failed to create user")
	}

	return nil
}

func (s *userStore) Update(m *model.User) error {
	if _, err := s.FindByID(m.ID); err != nil {
		return err
	}

	// Set the UpdateAt date to now
	m.UpdatedAt = time.Now().Round(time.Second).UTC()

	d := sqlDataUser{}
	if err := d.Scan(m); err != nil {
		return errors.Wrap(err, "failed to convert user model to SQL data")
	}

	var queryParams []string
	for _, param := range sqlParamsUser {
		queryParams = append(queryParams, fmt.Sprintf("%s=:%s", param, param))
	}
	query := fmt.Sprintf("UPDATE users SET %s WHERE id=:id", strings.Join(queryParams, ", "))
	if _, err := s.db.NamedExec(query, d); err != nil {
		return errors.Wrap(err, "failed to update user")
	}

	return nil
}

func (s *userStore) Delete(id string) error {
	query := "DELETE FROM users WHERE id=$1"
	if _, err := s.db.Exec(query, id); err != nil {
		return errors.Wrap(err, "failed to delete user")
	}

	return nil
}
