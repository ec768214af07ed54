package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/DioGolang/GoShop/internal/application/port/outbound"
	"github.com/DioGolang/GoShop/pkg/logger"
)

type Change string

const (
	Created Change = "created"
	Updated Change = "updated"
	Deleted Change = "deleted"
)

// Resource serves the JSON CRUD endpoints of one entity type. Every
// request runs in its own unit of work.
type Resource[T any] struct {
	Name    string
	Factory outbound.UnitOfWorkFactory
	Repo    func(outbound.RepositoryProvider) outbound.Repository[T]
	// SetID forces the key of a decoded entity to the one in the path.
	SetID    func(e *T, id int64)
	Validate func(e *T) error
	// OnChange runs after a mutation was committed.
	OnChange func(ctx context.Context, e *T, change Change)
	Logger   logger.Logger
}

// Routes mounts list, get, create, update and delete under r.
func (h *Resource[T]) Routes(r chi.Router) {
	h.ReadRoutes(r)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

func (h *Resource[T]) ReadRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

func (h *Resource[T]) List(w http.ResponseWriter, r *http.Request) {
	var out []*T
	err := outbound.WithUnitOfWork(r.Context(), h.Factory, func(uow outbound.UnitOfWork) error {
		var err error
		out, err = h.Repo(uow).GetAll(r.Context())
		return err
	})
	if err != nil {
		h.fail(w, r, "list", err)
		return
	}
	if out == nil {
		out = []*T{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Resource[T]) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "id must be a positive integer")
		return
	}
	var out *T
	err := outbound.WithUnitOfWork(r.Context(), h.Factory, func(uow outbound.UnitOfWork) error {
		var err error
		out, err = h.Repo(uow).GetByID(r.Context(), id)
		return err
	})
	if err != nil {
		h.fail(w, r, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Resource[T]) Create(w http.ResponseWriter, r *http.Request) {
	e := new(T)
	if err := decode(w, r, e); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	h.SetID(e, 0)
	if err := h.Validate(e); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	err := outbound.WithUnitOfWork(r.Context(), h.Factory, func(uow outbound.UnitOfWork) error {
		if err := h.Repo(uow).Add(r.Context(), e); err != nil {
			return err
		}
		_, err := uow.Commit(r.Context())
		return err
	})
	if err != nil {
		h.fail(w, r, "create", err)
		return
	}
	h.changed(r.Context(), e, Created)
	writeJSON(w, http.StatusCreated, e)
}

// Update decodes the body onto the stored entity, so fields the client
// leaves out keep their current value.
func (h *Resource[T]) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "id must be a positive integer")
		return
	}

	var (
		e      *T
		reject error
	)
	err := outbound.WithUnitOfWork(r.Context(), h.Factory, func(uow outbound.UnitOfWork) error {
		repo := h.Repo(uow)
		var err error
		if e, err = repo.GetByID(r.Context(), id); err != nil {
			return err
		}
		if err := decode(w, r, e); err != nil {
			reject = err
			return nil
		}
		h.SetID(e, id)
		if err := h.Validate(e); err != nil {
			reject = err
			return nil
		}
		if err := repo.Update(r.Context(), e); err != nil {
			return err
		}
		_, err = uow.Commit(r.Context())
		return err
	})
	if err != nil {
		h.fail(w, r, "update", err)
		return
	}
	if reject != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", reject.Error())
		return
	}
	h.changed(r.Context(), e, Updated)
	writeJSON(w, http.StatusOK, e)
}

func (h *Resource[T]) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "id must be a positive integer")
		return
	}
	var e *T
	err := outbound.WithUnitOfWork(r.Context(), h.Factory, func(uow outbound.UnitOfWork) error {
		repo := h.Repo(uow)
		var err error
		if e, err = repo.GetByID(r.Context(), id); err != nil {
			return err
		}
		if err := repo.Delete(r.Context(), e); err != nil {
			return err
		}
		_, err = uow.Commit(r.Context())
		return err
	})
	if err != nil {
		h.fail(w, r, "delete", err)
		return
	}
	h.changed(r.Context(), e, Deleted)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Resource[T]) changed(ctx context.Context, e *T, change Change) {
	if h.OnChange != nil {
		h.OnChange(ctx, e, change)
	}
}

func (h *Resource[T]) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.Logger.Warn(r.Context(), "Resource request failed",
		logger.String("resource", h.Name),
		logger.String("op", op),
		logger.WithError(err),
	)
	writeStoreError(w, err)
}
