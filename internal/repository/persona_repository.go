package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/maynagashev/contactkeeper/models"
)

// Отображаемое имя: title, f_name, l_name через пробел, пустые строки пропускаются.
const entityNameExpr = `concat_ws(' ', NULLIF(p.title, ''), NULLIF(p.f_name, ''), NULLIF(p.l_name, ''))`

// Выражение полнотекстового поиска; для него в схеме есть GIN-индекс.
const personaSearchExpr = `to_tsvector('simple', concat_ws(' ', p.title, p.f_name, p.l_name, p.organization, p.memo))`

// PersonaRepository определяет методы для работы с персонами.
type PersonaRepository interface {
	List(ctx context.Context, q DBTX, userID int64, filter models.PersonaFilter) ([]models.PersonaListItem, error)
	Get(ctx context.Context, q DBTX, personaID uuid.UUID) (*models.Persona, error)
	// Insert сохраняет новую персону без владельца; владелец назначается в той же транзакции.
	Insert(ctx context.Context, q DBTX, persona *models.Persona) error
	Update(ctx context.Context, q DBTX, persona *models.Persona) error
	// Delete удаляет записи всех видов, связи с тегами и саму персону.
	Delete(ctx context.Context, q DBTX, personaID uuid.UUID) error
	AddTags(ctx context.Context, q DBTX, personaID uuid.UUID, tagIDs []uuid.UUID) error
	RemoveTags(ctx context.Context, q DBTX, personaID uuid.UUID, tagIDs []uuid.UUID) error
}

// postgresPersonaRepository реализует PersonaRepository для PostgreSQL.
type postgresPersonaRepository struct{}

// NewPostgresPersonaRepository создает новый экземпляр репозитория персон.
func NewPostgresPersonaRepository() PersonaRepository {
	return &postgresPersonaRepository{}
}

// List возвращает персоны, доступные пользователю (владение или доступ на чтение).
// Персоны из filter.Included возвращаются, даже если не подходят под filter.Frag.
func (r *postgresPersonaRepository) List(
	ctx context.Context,
	q DBTX,
	userID int64,
	filter models.PersonaFilter,
) ([]models.PersonaListItem, error) {
	args := []interface{}{userID}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	wheres := []string{
		`(p.owner_id = $1 OR EXISTS (SELECT 1 FROM persona_shares s WHERE s.persona_id = p.id AND s.user_id = $1))`,
	}
	frag := strings.TrimSpace(filter.Frag)
	switch {
	case frag != "" && len(filter.Included) > 0:
		wheres = append(wheres, fmt.Sprintf("(%s @@ plainto_tsquery('simple', %s) OR p.id = ANY(%s::uuid[]))",
			personaSearchExpr, arg(frag), arg(pq.Array(uuidStrings(filter.Included)))))
	case frag != "":
		wheres = append(wheres, fmt.Sprintf("%s @@ plainto_tsquery('simple', %s)", personaSearchExpr, arg(frag)))
	case len(filter.Included) > 0:
		wheres = append(wheres, fmt.Sprintf("p.id = ANY(%s::uuid[])", arg(pq.Array(uuidStrings(filter.Included)))))
	}
	if filter.TagID != nil {
		wheres = append(wheres, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM tagpersona tp WHERE tp.persona_id = p.id AND tp.tag_id = %s)", arg(*filter.TagID)))
	}

	query := `SELECT p.id, ` + entityNameExpr + ` AS entity_name, p.l_name, p.f_name, p.title, p.organization
	          FROM personas p
	          WHERE ` + strings.Join(wheres, " AND ") + `
	          ORDER BY entity_name, p.id`

	items := make([]models.PersonaListItem, 0)
	if err := q.SelectContext(ctx, &items, query, args...); err != nil {
		log.Printf("[PersonaRepo] Ошибка получения списка персон для пользователя %d: %v", userID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение списка персон: %w", err)
	}

	log.Printf("[PersonaRepo] Получено %d персон для пользователя %d", len(items), userID)
	return items, nil
}

type personaRow struct {
	models.Persona
	TagIDList pq.StringArray `db:"tag_ids"`
}

// Get находит персону по ID вместе со списком ее тегов.
func (r *postgresPersonaRepository) Get(ctx context.Context, q DBTX, personaID uuid.UUID) (*models.Persona, error) {
	query := `SELECT p.id, p.corporate_entity, p.l_name, p.f_name, p.title, p.organization, p.memo,
	                 p.birthday, p.anniversary, p.owner_id, ` + entityNameExpr + ` AS entity_name,
	                 COALESCE((SELECT array_agg(tp.tag_id::text ORDER BY tp.tag_id)
	                           FROM tagpersona tp WHERE tp.persona_id = p.id), '{}') AS tag_ids
	          FROM personas p
	          WHERE p.id = $1`

	var row personaRow
	if err := q.GetContext(ctx, &row, query, personaID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("[PersonaRepo] Персона %s не найдена", personaID)
			return nil, ErrPersonaNotFound
		}
		log.Printf("[PersonaRepo] Ошибка при поиске персоны %s: %v", personaID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение персоны: %w", err)
	}

	persona := row.Persona
	persona.TagIDs = []string(row.TagIDList)
	if persona.TagIDs == nil {
		persona.TagIDs = []string{}
	}
	return &persona, nil
}

func (r *postgresPersonaRepository) Insert(ctx context.Context, q DBTX, p *models.Persona) error {
	query := `INSERT INTO personas (id, corporate_entity, l_name, f_name, title, organization, memo, birthday, anniversary)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := q.ExecContext(ctx, query,
		p.ID, p.CorporateEntity, p.LName, p.FName, p.Title, p.Organization, p.Memo, p.Birthday, p.Anniversary)
	if err != nil {
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			log.Printf("[PersonaRepo] Персона %s уже существует", p.ID)
			return ErrPersonaExists
		}
		log.Printf("[PersonaRepo] Ошибка создания персоны %s: %v", p.ID, err)
		return fmt.Errorf("ошибка выполнения запроса на создание персоны: %w", err)
	}
	log.Printf("[PersonaRepo] Персона %s создана", p.ID)
	return nil
}

func (r *postgresPersonaRepository) Update(ctx context.Context, q DBTX, p *models.Persona) error {
	columns := []struct {
		name  string
		value interface{}
	}{
		{"corporate_entity", p.CorporateEntity},
		{"l_name", p.LName},
		{"f_name", p.FName},
		{"title", p.Title},
		{"organization", p.Organization},
		{"memo", p.Memo},
		{"birthday", p.Birthday},
		{"anniversary", p.Anniversary},
	}
	// Меняются только переданные поля
	args := []interface{}{p.ID}
	var sets []string
	for _, c := range columns {
		if !p.Has(c.name) {
			continue
		}
		args = append(args, c.value)
		sets = append(sets, fmt.Sprintf("%s = $%d", c.name, len(args)))
	}
	if len(sets) == 0 {
		sets = append(sets, "id = id")
	}

	query := `UPDATE personas SET ` + strings.Join(sets, ", ") + ` WHERE id = $1`
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		log.Printf("[PersonaRepo] Ошибка обновления персоны %s: %v", p.ID, err)
		return fmt.Errorf("ошибка выполнения запроса на обновление персоны: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPersonaNotFound
	}
	log.Printf("[PersonaRepo] Персона %s обновлена", p.ID)
	return nil
}

func (r *postgresPersonaRepository) Delete(ctx context.Context, q DBTX, personaID uuid.UUID) error {
	for _, bitType := range models.BitTypes {
		query := `DELETE FROM ` + string(bitType) + ` WHERE persona_id = $1`
		if _, err := q.ExecContext(ctx, query, personaID); err != nil {
			log.Printf("[PersonaRepo] Ошибка удаления записей %s персоны %s: %v", bitType, personaID, err)
			return fmt.Errorf("ошибка удаления записей %s: %w", bitType, err)
		}
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM tagpersona WHERE persona_id = $1`, personaID); err != nil {
		log.Printf("[PersonaRepo] Ошибка удаления тегов персоны %s: %v", personaID, err)
		return fmt.Errorf("ошибка удаления связей с тегами: %w", err)
	}
	// Доступы удаляются каскадно вместе со строкой персоны
	res, err := q.ExecContext(ctx, `DELETE FROM personas WHERE id = $1`, personaID)
	if err != nil {
		log.Printf("[PersonaRepo] Ошибка удаления персоны %s: %v", personaID, err)
		return fmt.Errorf("ошибка выполнения запроса на удаление персоны: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPersonaNotFound
	}
	log.Printf("[PersonaRepo] Персона %s удалена", personaID)
	return nil
}

func (r *postgresPersonaRepository) AddTags(ctx context.Context, q DBTX, personaID uuid.UUID, tagIDs []uuid.UUID) error {
	if len(tagIDs) == 0 {
		return nil
	}
	query := `INSERT INTO tagpersona (tag_id, persona_id)
	          SELECT unnest($2::uuid[]), $1
	          ON CONFLICT (tag_id, persona_id) DO NOTHING`
	if _, err := q.ExecContext(ctx, query, personaID, pq.Array(uuidStrings(tagIDs))); err != nil {
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolationCode {
			log.Printf("[PersonaRepo] Попытка добавить персоне %s несуществующий тег", personaID)
			return ErrTagNotFound
		}
		log.Printf("[PersonaRepo] Ошибка добавления тегов персоне %s: %v", personaID, err)
		return fmt.Errorf("ошибка выполнения запроса на добавление тегов: %w", err)
	}
	return nil
}

func (r *postgresPersonaRepository) RemoveTags(
	ctx context.Context,
	q DBTX,
	personaID uuid.UUID,
	tagIDs []uuid.UUID,
) error {
	if len(tagIDs) == 0 {
		return nil
	}
	query := `DELETE FROM tagpersona WHERE persona_id = $1 AND tag_id = ANY($2::uuid[])`
	if _, err := q.ExecContext(ctx, query, personaID, pq.Array(uuidStrings(tagIDs))); err != nil {
		log.Printf("[PersonaRepo] Ошибка удаления тегов персоны %s: %v", personaID, err)
		return fmt.Errorf("ошибка выполнения запроса на удаление тегов: %w", err)
	}
	return nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// Кастомные ошибки репозитория персон.
var (
	ErrPersonaNotFound = errors.New("персона не найдена")
	ErrPersonaExists   = errors.New("персона с таким ID уже существует")
)
