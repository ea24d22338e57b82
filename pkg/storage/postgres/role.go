package postgres

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/nsyszr/rtdb/pkg/model"
	"github.com/nsyszr/rtdb/pkg/storage"
	"github.com/pkg/errors"
)

func newRoleStore(db *sqlx.DB) *roleStore {
	return &roleStore{
		db: db,
	}
}

type roleStore struct {
	db *sqlx.DB
}

type sqlDataRole struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

var sqlParamsRole = []string{
	"id",
	"name",
	"created_at",
	"updated_at",
}

func (d *sqlDataRole) Scan(m *model.Role) error {
	var createdAt, updatedAt = m.CreatedAt, m.UpdatedAt

	if m.CreatedAt.IsZero() {
		createdAt = time.Now().Round(time.Second).UTC()
	}

	if m.UpdatedAt.IsZero() {
		updatedAt = time.Now().Round(time.Second).UTC()
	}

	d.ID = m.ID
	d.Name = m.Name
	d.CreatedAt = createdAt
	d.UpdatedAt = updatedAt

	return nil
}

func (d *sqlDataRole) Model() (*model.Role, error) {
	m := &model.Role{
		ID:        d.ID,
		Name:      d.Name,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}

	return m, nil
}

func (s *roleStore) FetchAll() (map[string]model.Role, error) {
	rows := make([]sqlDataRole, 0)
	models := make(map[string]model.Role)

	query := "SELECT * FROM roles"
	if err := s.db.Select(&rows, query); err != nil {
		return nil, errors.Wrap(err, "failed to fetch all roles")
	}

	for _, d := range rows {
		m, err := d.Model()
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert SQL data to role model")
		}

		models[d.ID] = *m
	}

	return models, nil
}

func (s *roleStore) FindByID(id string) (*model.Role, error) {
	d := sqlDataRole{}
	query := "SELECT * FROM roles WHERE id=$1"
	if err := s.db.Get(&d, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find role")
	}

	return d.Model()
}

func (s *roleStore) Create(m *model.Role) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}

	d := sqlDataRole{}
	if err := d.Scan(m); err != nil {
		return errors.Wrap(err, "failed to convert role model to SQL data")
	}

	query := fmt.Sprintf(
		"INSERT INTO roles (%s) VALUES (%s)",
		strings.Join(sqlParamsRole, ", "),
		":"+strings.Join(sqlParamsRole, ", :"),
	)
	if _, err := s.db.NamedExec(query, d); err != nil {
		return errors.Wrap(err, "failed to create role")
	}

	return nil
}

func (s *roleStore) Update(m *model.Role) error {
	if _, err := s.FindByID(m.ID); err != nil {
		return err
	}

	// Set the UpdateAt date to now
	m.UpdatedAt = time.Now().Round(time.Second).UTC()

	d := sqlDataRole{}
	if err := d.Scan(m); err != nil {
		return errors.Wrap(err, "failed to convert role model to SQL data")
	}

	var queryParams []string
	for _, param := range sqlParamsRole {
		queryParams = append(queryParams, fmt.Sprintf("%s=:%s", param, param))
	}
	query := fmt.Sprintf("UPDATE roles SET %s WHERE id=:id", strings.Join(queryParams, ", "))
	if _, err := s.db.NamedExec(query, d); err != nil {
		return errors.Wrap(err, "failed to update role")
	}

	return nil
}

func (s *roleStore) Delete(id string) error {
	query := "DELETE FROM roles WHERE id=$1"
	if _, err := s.db.Exec(query, id); err != nil {
		return errors.Wrap(err, "failed to delete role")
	}

	return nil
}
