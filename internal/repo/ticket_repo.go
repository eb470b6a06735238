package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/seekerhut/ticketrag/internal/model"
	apperr "github.com/seekerhut/ticketrag/internal/pkg/errors"
)

const (
	ccKindAdmin   = "admin"
	ccKindWatcher = "watcher"
)

type TicketRepo struct {
	db *sqlx.DB
}

func NewTicketRepo(db *sqlx.DB) *TicketRepo {
	return &TicketRepo{db: db}
}

func (r *TicketRepo) Create(ctx context.Context, t *model.Ticket) error {
	const query = `
		INSERT INTO tickets (title, description, status, priority, created_by, assigned_to, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	row := r.db.QueryRowContext(ctx, query,
		t.Title, t.Description, t.Status, t.Priority, t.CreatedBy, t.AssignedTo, t.ClosedAt)
	if err := row.Scan(&t.ID, &t.CreatedAt); err != nil {
		return err
	}
	return r.replaceCC(ctx, t.ID, t.CCAdmins, t.CCWatchers)
}

func (r *TicketRepo) Update(ctx context.Context, t *model.Ticket) error {
	where := map[string]interface{}{"id": t.ID}
	update := map[string]interface{}{
		"title":       t.Title,
		"description": t.Description,
		"status":      t.Status,
		"priority":    t.Priority,
		"assigned_to": t.AssignedTo,
		"closed_at":   t.ClosedAt,
	}
	sqlStr, args, err := builder.BuildUpdate("tickets", where, update)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(sqlStr), args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.ErrNotFound
	}
	return r.replaceCC(ctx, t.ID, t.CCAdmins, t.CCWatchers)
}

func (r *TicketRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tickets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *TicketRepo) Get(ctx context.Context, id int64) (*model.Ticket, error) {
	where := map[string]interface{}{"id": id}
	sqlStr, args, err := builder.BuildSelect("tickets", where, ticketColumns())
	if err != nil {
		return nil, err
	}
	var t model.Ticket
	if err := r.db.GetContext(ctx, &t, r.db.Rebind(sqlStr), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	cc, err := r.loadCC(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	t.CCAdmins = cc[id][ccKindAdmin]
	t.CCWatchers = cc[id][ccKindWatcher]
	return &t, nil
}

func (r *TicketRepo) ListAll(ctx context.Context) ([]model.Ticket, error) {
	where := map[string]interface{}{"_orderby": "id asc"}
	sqlStr, args, err := builder.BuildSelect("tickets", where, ticketColumns())
	if err != nil {
		return nil, err
	}
	var tickets []model.Ticket
	if err := r.db.SelectContext(ctx, &tickets, r.db.Rebind(sqlStr), args...); err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return tickets, nil
	}
	ids := make([]int64, len(tickets))
	for i, t := range tickets {
		ids[i] = t.ID
	}
	cc, err := r.loadCC(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range tickets {
		tickets[i].CCAdmins = cc[tickets[i].ID][ccKindAdmin]
		tickets[i].CCWatchers = cc[tickets[i].ID][ccKindWatcher]
	}
	return tickets, nil
}

func ticketColumns() []string {
	return []string{"id", "title", "description", "status", "priority", "created_by", "assigned_to", "created_at", "closed_at"}
}

func (r *TicketRepo) replaceCC(ctx context.Context, ticketID int64, admins, watchers []string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM ticket_cc WHERE ticket_id = $1`, ticketID); err != nil {
		return err
	}
	insert := func(kind string, names []string) error {
		for _, name := range names {
			_, err := r.db.ExecContext(ctx,
				`INSERT INTO ticket_cc (ticket_id, kind, username) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
				ticketID, kind, name)
			if err != nil {
				return err
			}
		}
		return nil
	}
	if err := insert(ccKindAdmin, admins); err != nil {
		return err
	}
	return insert(ccKindWatcher, watchers)
}

func (r *TicketRepo) loadCC(ctx context.Context, ids []int64) (map[int64]map[string][]string, error) {
	query, args, err := sqlx.In(`SELECT ticket_id, kind, username FROM ticket_cc WHERE ticket_id IN (?) ORDER BY username`, ids)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make(map[int64]map[string][]string, len(ids))
	for rows.Next() {
		var ticketID int64
		var kind, username string
		if err := rows.Scan(&ticketID, &kind, &username); err != nil {
			return nil, err
		}
		if result[ticketID] == nil {
			result[ticketID] = make(map[string][]string, 2)
		}
		result[ticketID][kind] = append(result[ticketID][kind], username)
	}
	return result, rows.Err()
}
