package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/DioGolang/GoShop/internal/application/port/outbound"
	"github.com/DioGolang/GoShop/internal/application/usecase/order"
	"github.com/DioGolang/GoShop/internal/domain/entity"
	"github.com/DioGolang/GoShop/pkg/logger"
)

var outcomeStatus = map[string]int{
	order.OutcomeInvalidRequest:    http.StatusBadRequest,
	order.OutcomeCustomerNotFound:  http.StatusNotFound,
	order.OutcomeProductNotFound:   http.StatusNotFound,
	order.OutcomeInsufficientStock: http.StatusConflict,
	order.OutcomeConflict:          http.StatusConflict,
	order.OutcomePersistenceError:  http.StatusInternalServerError,
}

// Order creates orders through the workflow and serves them read-only.
// Orders have no update or delete endpoint.
type Order struct {
	CreateOrderUseCase order.CreateUseCase
	Logger             logger.Logger
	reads              *Resource[entity.Order]
}

func NewOrderHandler(uc order.CreateUseCase, f outbound.UnitOfWorkFactory, log logger.Logger) *Order {
	return &Order{
		CreateOrderUseCase: uc,
		Logger:             log,
		reads: &Resource[entity.Order]{
			Name:    "orders",
			Factory: f,
			Repo: func(p outbound.RepositoryProvider) outbound.Repository[entity.Order] {
				return p.Orders()
			},
			Logger: log,
		},
	}
}

// Routes mounts the read endpoints and POST /, wrapping the latter in create.
func (h *Order) Routes(r chi.Router, create ...func(http.Handler) http.Handler) {
	h.reads.ReadRoutes(r)
	r.With(create...).Post("/", h.Create)
}

func (h *Order) Create(w http.ResponseWriter, r *http.Request) {
	var dto order.CreateInput
	if err := decode(w, r, &dto); err != nil {
		writeError(w, http.StatusBadRequest, order.OutcomeInvalidRequest, "malformed JSON body")
		return
	}

	output, err := h.CreateOrderUseCase.Execute(r.Context(), &dto)
	if err != nil {
		outcome := order.Outcome(err)
		message := err.Error()
		if outcome == order.OutcomePersistenceError {
			message = "the order could not be stored"
		}
		writeError(w, outcomeStatus[outcome], outcome, message)
		return
	}

	writeJSON(w, http.StatusCreated, output)
}
