package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sourcegraph/conc/pool"

	"github.com/mesh-intelligence/taskboard/internal/wire"
	"github.com/mesh-intelligence/taskboard/pkg/types"
)

// owner answers ownership questions for the signed-in caller. Boards belong
// to their creator; lists and cards belong to the owner of their board.
type owner struct {
	ctx      context.Context
	cupboard types.Cupboard
	userID   string
}

func (o *owner) get(table, id string) (any, error) {
	t, err := o.cupboard.GetTable(table)
	if err != nil {
		return nil, err
	}
	return t.Get(o.ctx, id)
}

// owns reports whether the caller owns the row table/id. Missing rows are
// not owned.
func (o *owner) owns(table, id string) (bool, error) {
	e, err := o.get(table, id)
	if errors.Is(err, types.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return o.ownsEntity(e)
}

func (o *owner) ownsEntity(e any) (bool, error) {
	switch x := e.(type) {
	case *types.Board:
		return x.UserID == o.userID, nil
	case *types.List:
		return o.owns(types.TableBoards, x.BoardID)
	case *types.Card:
		return o.owns(types.TableLists, x.ListID)
	default:
		return false, types.ErrInvalidData
	}
}

// boardIDs returns the ids of the caller's boards.
func (o *owner) boardIDs() (map[string]bool, error) {
	t, err := o.cupboard.GetTable(types.TableBoards)
	if err != nil {
		return nil, err
	}
	rows, err := t.Fetch(o.ctx, types.Query{Filter: types.Filter{types.ColumnUserID: o.userID}})
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(rows))
	for _, r := range rows {
		ids[r.(*types.Board).BoardID] = true
	}
	return ids, nil
}

// listIDs returns the ids of the lists on the caller's boards.
func (o *owner) listIDs() (map[string]bool, error) {
	boards, err := o.boardIDs()
	if err != nil {
		return nil, err
	}
	t, err := o.cupboard.GetTable(types.TableLists)
	if err != nil {
		return nil, err
	}
	p := pool.NewWithResults[[]any]().WithMaxGoroutines(4).WithContext(o.ctx)
	for boardID := range boards {
		p.Go(func(ctx context.Context) ([]any, error) {
			return t.Fetch(ctx, types.Query{Filter: types.Filter{types.ColumnBoardID: boardID}})
		})
	}
	results, err := p.Wait()
	if err != nil {
		return nil, err
	}
	ids := map[string]bool{}
	for _, rows := range results {
		for _, r := range rows {
			ids[r.(*types.List).ListID] = true
		}
	}
	return ids, nil
}

// visible filters rows of table down to those the caller owns.
func (o *owner) visible(table string, rows []any) ([]any, error) {
	var (
		parents map[string]bool
		err     error
	)
	switch table {
	case types.TableLists:
		parents, err = o.boardIDs()
	case types.TableCards:
		parents, err = o.listIDs()
	default:
		return rows, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(rows))
	for _, r := range rows {
		switch x := r.(type) {
		case *types.List:
			if parents[x.BoardID] {
				out = append(out, r)
			}
		case *types.Card:
			if parents[x.ListID] {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

// canWrite reports whether the caller may store e: boards are stamped with
// the caller, lists and cards need an owned parent.
func (o *owner) canWrite(e any) error {
	var (
		ok  bool
		err error
	)
	switch x := e.(type) {
	case *types.Board:
		x.UserID = o.userID
		return nil
	case *types.List:
		ok, err = o.owns(types.TableBoards, x.BoardID)
	case *types.Card:
		ok, err = o.owns(types.TableLists, x.ListID)
	default:
		return types.ErrInvalidData
	}
	if err != nil {
		return err
	}
	if !ok {
		return types.ErrInvalidReference
	}
	return nil
}

// canPatch checks that a patch does not move a row under a foreign parent.
func (o *owner) canPatch(table string, patch types.Patch) error {
	parentCol, parentTable := "", ""
	switch table {
	case types.TableBoards:
		if _, ok := patch[types.ColumnUserID]; ok {
			return types.ErrInvalidData
		}
		return nil
	case types.TableLists:
		parentCol, parentTable = types.ColumnBoardID, types.TableBoards
	case types.TableCards:
		parentCol, parentTable = types.ColumnListID, types.TableLists
	}
	v, ok := patch[parentCol]
	if !ok {
		return nil
	}
	id, _ := v.(string)
	owned, err := o.owns(parentTable, id)
	if err != nil {
		return err
	}
	if !owned {
		return types.ErrInvalidReference
	}
	return nil
}

func (s *Server) owner(r *http.Request) *owner {
	return &owner{ctx: r.Context(), cupboard: s.cupboard, userID: sessionFrom(r.Context()).User.UserID}
}

func (s *Server) table(w http.ResponseWriter, r *http.Request) (types.Table, string, bool) {
	name := mux.Vars(r)["table"]
	t, err := s.cupboard.GetTable(name)
	if err != nil {
		s.writeError(w, r, err)
		return nil, "", false
	}
	return t, name, true
}

// checkOwned writes ErrNotFound unless the caller owns table/id.
func (s *Server) checkOwned(w http.ResponseWriter, r *http.Request, o *owner, table, id string) bool {
	ok, err := o.owns(table, id)
	if err != nil {
		s.writeError(w, r, err)
		return false
	}
	if !ok {
		s.writeError(w, r, types.ErrNotFound)
		return false
	}
	return true
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	t, name, ok := s.table(w, r)
	if !ok {
		return
	}
	q, err := wire.DecodeQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	o := s.owner(r)

	limit := q.Limit
	if name == types.TableBoards {
		if q.Filter == nil {
			q.Filter = types.Filter{}
		}
		q.Filter[types.ColumnUserID] = o.userID
	} else {
		// Rows are filtered by owner after the query, so the limit is
		// applied afterwards too.
		q.Limit = 0
	}

	rows, err := t.Fetch(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rows, err = o.visible(name, rows)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	t, name, ok := s.table(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	if !s.checkOwned(w, r, s.owner(r), name, id) {
		return
	}
	e, err := t.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	s.store(w, r, "", http.StatusCreated)
}

func (s *Server) handleUpsert(w http.ResponseWriter, r *http.Request) {
	s.store(w, r, mux.Vars(r)["id"], http.StatusOK)
}

func (s *Server) store(w http.ResponseWriter, r *http.Request, id string, status int) {
	t, name, ok := s.table(w, r)
	if !ok {
		return
	}
	data, err := readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	e, err := wire.ParseEntityJSON(name, data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	o := s.owner(r)
	if id != "" {
		// An existing row may only be replaced by its owner.
		if _, err := t.Get(r.Context(), id); err == nil {
			if !s.checkOwned(w, r, o, name, id) {
				return
			}
		}
	}
	if err := o.canWrite(e); err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := t.Set(r.Context(), id, e); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, status, e)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	t, name, ok := s.table(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	var patch types.Patch
	data, err := readBody(w, r)
	if err == nil {
		err = json.Unmarshal(data, &patch)
	}
	if err != nil {
		s.writeError(w, r, types.ErrInvalidData)
		return
	}
	o := s.owner(r)
	if !s.checkOwned(w, r, o, name, id) {
		return
	}
	if err := o.canPatch(name, patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	e, err := t.Update(r.Context(), id, patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	t, name, ok := s.table(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	if !s.checkOwned(w, r, s.owner(r), name, id) {
		return
	}
	if err := t.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
