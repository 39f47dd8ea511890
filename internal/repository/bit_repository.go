package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/maynagashev/contactkeeper/models"
)

// BitRepository определяет методы для работы с записями персон. Записи хранятся
// в четырех таблицах (по одной на вид), чтение идет через представление bits.
type BitRepository interface {
	// ListByPersona возвращает все записи персоны в порядке sequence.
	ListByPersona(ctx context.Context, q DBTX, personaID uuid.UUID) ([]models.Bit, error)
	Get(ctx context.Context, q DBTX, personaID, bitID uuid.UUID) (*models.Bit, error)
	// Upsert создает или обновляет запись в таблице ее вида. Новой записи
	// назначается следующий номер sequence среди всех записей персоны.
	Upsert(ctx context.Context, q DBTX, bit *models.Bit) error
	// Delete удаляет запись из всех таблиц видов по паре (persona_id, id).
	Delete(ctx context.Context, q DBTX, personaID, bitID uuid.UUID) error
	GetPositions(ctx context.Context, q DBTX, personaID uuid.UUID, bitIDs ...uuid.UUID) ([]models.BitPosition, error)
	SetSequence(ctx context.Context, q DBTX, pos models.BitPosition, sequence int) error
	// MaxSequence возвращает наибольший номер среди всех записей персоны (0, если записей нет).
	MaxSequence(ctx context.Context, q DBTX, personaID uuid.UUID) (int, error)
	GetPasswordEnc(ctx context.Context, q DBTX, personaID, bitID uuid.UUID) ([]byte, error)
	SetPasswordEnc(ctx context.Context, q DBTX, personaID, bitID uuid.UUID, enc []byte) error
}

// postgresBitRepository реализует BitRepository для PostgreSQL.
type postgresBitRepository struct{}

// NewPostgresBitRepository создает новый экземпляр репозитория записей.
func NewPostgresBitRepository() BitRepository {
	return &postgresBitRepository{}
}

const selectBits = `SELECT id, persona_id, bit_type, name, memo, is_primary, sequence,
	       url, username, password_enc, pw_reset_dt, pw_next_reset_dt,
	       email, number, address1, address2, city, state, zip, country
	FROM bits`

// bitRow - строка представления bits, общая для всех видов.
type bitRow struct {
	ID            uuid.UUID      `db:"id"`
	PersonaID     uuid.UUID      `db:"persona_id"`
	BitType       models.BitType `db:"bit_type"`
	Name          *string        `db:"name"`
	Memo          *string        `db:"memo"`
	IsPrimary     bool           `db:"is_primary"`
	Sequence      int            `db:"sequence"`
	URL           *string        `db:"url"`
	Username      *string        `db:"username"`
	PasswordEnc   []byte         `db:"password_enc"`
	PwResetDt     *time.Time     `db:"pw_reset_dt"`
	PwNextResetDt *time.Time     `db:"pw_next_reset_dt"`
	Email         *string        `db:"email"`
	Number        *string        `db:"number"`
	Address1      *string        `db:"address1"`
	Address2      *string        `db:"address2"`
	City          *string        `db:"city"`
	State         *string        `db:"state"`
	Zip           *string        `db:"zip"`
	Country       *string        `db:"country"`
}

func (r bitRow) toModel() (models.Bit, error) {
	bit := models.Bit{
		ID:        r.ID,
		PersonaID: r.PersonaID,
		Name:      r.Name,
		Memo:      r.Memo,
		IsPrimary: r.IsPrimary,
		Sequence:  r.Sequence,
	}
	switch r.BitType {
	case models.BitTypeURL:
		bit.Data = &models.URLData{
			URL:           r.URL,
			Username:      r.Username,
			PasswordEnc:   r.PasswordEnc,
			PwResetDt:     r.PwResetDt,
			PwNextResetDt: r.PwNextResetDt,
		}
	case models.BitTypeEmail:
		bit.Data = &models.EmailData{Email: r.Email}
	case models.BitTypePhone:
		bit.Data = &models.PhoneData{Number: r.Number}
	case models.BitTypeAddress:
		bit.Data = &models.AddressData{
			Address1: r.Address1,
			Address2: r.Address2,
			City:     r.City,
			State:    r.State,
			Zip:      r.Zip,
			Country:  r.Country,
		}
	default:
		return bit, fmt.Errorf("неизвестный вид записи в БД: %q", r.BitType)
	}
	return bit, nil
}

func (r *postgresBitRepository) ListByPersona(ctx context.Context, q DBTX, personaID uuid.UUID) ([]models.Bit, error) {
	query := selectBits + ` WHERE persona_id = $1 ORDER BY sequence, id`
	var rows []bitRow
	if err := q.SelectContext(ctx, &rows, query, personaID); err != nil {
		log.Printf("[BitRepo] Ошибка получения записей персоны %s: %v", personaID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение записей: %w", err)
	}

	result := make([]models.Bit, 0, len(rows))
	for _, row := range rows {
		bit, err := row.toModel()
		if err != nil {
			return nil, err
		}
		result = append(result, bit)
	}
	return result, nil
}

func (r *postgresBitRepository) Get(ctx context.Context, q DBTX, personaID, bitID uuid.UUID) (*models.Bit, error) {
	query := selectBits + ` WHERE persona_id = $1 AND id = $2`
	var row bitRow
	if err := q.GetContext(ctx, &row, query, personaID, bitID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("[BitRepo] Запись %s персоны %s не найдена", bitID, personaID)
			return nil, ErrBitNotFound
		}
		log.Printf("[BitRepo] Ошибка при поиске записи %s: %v", bitID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение записи: %w", err)
	}
	bit, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &bit, nil
}

// Следующий номер считается по всем видам записей персоны.
const nextSequence = `(SELECT COALESCE(MAX(sequence), 0) + 1 FROM bits WHERE persona_id = $2)`

// bitColumn - колонка таблицы вида записи. set=false оставляет сохраненное значение
// при обновлении существующей записи.
type bitColumn struct {
	name  string
	value interface{}
	set   bool
}

// bitColumns возвращает таблицу вида записи и ее колонки в порядке вставки.
func bitColumns(bit *models.Bit) (string, []bitColumn, error) {
	col := func(field string, value interface{}) bitColumn {
		return bitColumn{name: field, value: value, set: bit.Has(field)}
	}
	cols := []bitColumn{col("name", bit.Name), col("memo", bit.Memo), col("is_primary", bit.IsPrimary)}

	switch data := bit.Data.(type) {
	case *models.URLData:
		return string(models.BitTypeURL), append(cols,
			col("url", data.URL),
			col("username", data.Username),
			// Секрет меняется только если пароль был передан явно
			bitColumn{name: "password_enc", value: data.PasswordEnc, set: data.PasswordSet},
			col("pw_reset_dt", data.PwResetDt),
			col("pw_next_reset_dt", data.PwNextResetDt),
		), nil
	case *models.EmailData:
		return string(models.BitTypeEmail), append(cols, col("email", data.Email)), nil
	case *models.PhoneData:
		return string(models.BitTypePhone), append(cols, col("number", data.Number)), nil
	case *models.AddressData:
		return string(models.BitTypeAddress), append(cols,
			col("address1", data.Address1),
			col("address2", data.Address2),
			col("city", data.City),
			col("state", data.State),
			col("zip", data.Zip),
			col("country", data.Country),
		), nil
	}
	return "", nil, fmt.Errorf("неизвестный вид записи: %T", bit.Data)
}

func (r *postgresBitRepository) Upsert(ctx context.Context, q DBTX, bit *models.Bit) error {
	table, cols, err := bitColumns(bit)
	if err != nil {
		return err
	}

	names := []string{"id", "persona_id", "sequence"}
	values := []string{"$1", "$2", nextSequence}
	args := []interface{}{bit.ID, bit.PersonaID}
	var updates []string
	for _, c := range cols {
		args = append(args, c.value)
		names = append(names, c.name)
		values = append(values, fmt.Sprintf("$%d", len(args)))
		if c.set {
			updates = append(updates, c.name+" = EXCLUDED."+c.name)
		}
	}
	if len(updates) == 0 {
		// Обновлять нечего, но принадлежность записи персоне все равно проверяется
		updates = append(updates, "persona_id = EXCLUDED.persona_id")
	}

	query := `INSERT INTO ` + table + ` (` + strings.Join(names, ", ") + `)
	          VALUES (` + strings.Join(values, ", ") + `)
	          ON CONFLICT (id) DO UPDATE
	          SET ` + strings.Join(updates, ", ") + `
	          WHERE ` + table + `.persona_id = EXCLUDED.persona_id`

	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		log.Printf("[BitRepo] Ошибка сохранения записи %s (%s): %v", bit.ID, bit.Type(), err)
		return fmt.Errorf("ошибка выполнения запроса на сохранение записи: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Запись с таким ID принадлежит другой персоне
		log.Printf("[BitRepo] Запись %s не принадлежит персоне %s", bit.ID, bit.PersonaID)
		return ErrBitNotFound
	}
	log.Printf("[BitRepo] Запись %s (%s) персоны %s сохранена", bit.ID, bit.Type(), bit.PersonaID)
	return nil
}

func (r *postgresBitRepository) Delete(ctx context.Context, q DBTX, personaID, bitID uuid.UUID) error {
	var total int64
	for _, bitType := range models.BitTypes {
		query := `DELETE FROM ` + string(bitType) + ` WHERE persona_id = $1 AND id = $2`
		res, err := q.ExecContext(ctx, query, personaID, bitID)
		if err != nil {
			log.Printf("[BitRepo] Ошибка удаления записи %s из %s: %v", bitID, bitType, err)
			return fmt.Errorf("ошибка удаления записи из %s: %w", bitType, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	if total == 0 {
		return ErrBitNotFound
	}
	log.Printf("[BitRepo] Запись %s персоны %s удалена", bitID, personaID)
	return nil
}

func (r *postgresBitRepository) GetPositions(
	ctx context.Context,
	q DBTX,
	personaID uuid.UUID,
	bitIDs ...uuid.UUID,
) ([]models.BitPosition, error) {
	query := `SELECT id, persona_id, bit_type, sequence FROM bits WHERE persona_id = $1 AND id = ANY($2::uuid[])`
	positions := make([]models.BitPosition, 0, len(bitIDs))
	if err := q.SelectContext(ctx, &positions, query, personaID, pq.Array(uuidStrings(bitIDs))); err != nil {
		log.Printf("[BitRepo] Ошибка получения положения записей персоны %s: %v", personaID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение положения записей: %w", err)
	}
	return positions, nil
}

func (r *postgresBitRepository) SetSequence(ctx context.Context, q DBTX, pos models.BitPosition, sequence int) error {
	if !pos.BitType.Valid() {
		return fmt.Errorf("неизвестный вид записи: %q", pos.BitType)
	}
	query := `UPDATE ` + string(pos.BitType) + ` SET sequence = $3 WHERE persona_id = $1 AND id = $2`
	res, err := q.ExecContext(ctx, query, pos.PersonaID, pos.ID, sequence)
	if err != nil {
		log.Printf("[BitRepo] Ошибка изменения порядка записи %s: %v", pos.ID, err)
		return fmt.Errorf("ошибка выполнения запроса на изменение порядка: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBitNotFound
	}
	return nil
}

func (r *postgresBitRepository) MaxSequence(ctx context.Context, q DBTX, personaID uuid.UUID) (int, error) {
	query := `SELECT COALESCE(MAX(sequence), 0) FROM bits WHERE persona_id = $1`
	var maxSeq int
	if err := q.GetContext(ctx, &maxSeq, query, personaID); err != nil {
		log.Printf("[BitRepo] Ошибка получения последнего номера записей персоны %s: %v", personaID, err)
		return 0, fmt.Errorf("ошибка выполнения запроса на получение последнего номера: %w", err)
	}
	return maxSeq, nil
}

func (r *postgresBitRepository) GetPasswordEnc(ctx context.Context, q DBTX, personaID, bitID uuid.UUID) ([]byte, error) {
	query := `SELECT password_enc FROM urls WHERE persona_id = $1 AND id = $2`
	var enc []byte
	if err := q.GetContext(ctx, &enc, query, personaID, bitID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBitNotFound
		}
		log.Printf("[BitRepo] Ошибка получения секрета записи %s: %v", bitID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение секрета: %w", err)
	}
	return enc, nil
}

func (r *postgresBitRepository) SetPasswordEnc(
	ctx context.Context,
	q DBTX,
	personaID, bitID uuid.UUID,
	enc []byte,
) error {
	query := `UPDATE urls SET password_enc = $3 WHERE persona_id = $1 AND id = $2`
	res, err := q.ExecContext(ctx, query, personaID, bitID, enc)
	if err != nil {
		log.Printf("[BitRepo] Ошибка сохранения секрета записи %s: %v", bitID, err)
		return fmt.Errorf("ошибка выполнения запроса на сохранение секрета: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBitNotFound
	}
	return nil
}

// Кастомные ошибки репозитория записей.
var (
	ErrBitNotFound = errors.New("запись персоны не найдена")
)
