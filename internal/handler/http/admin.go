package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/utafrali/CatalogGo/internal/service"
	"github.com/utafrali/CatalogGo/pkg/httputil"
)

// AdminHandler serves catalog CRUD for manufacturers, distributors, products
// and items.
type AdminHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewAdminHandler creates a new admin HTTP handler.
func NewAdminHandler(svc *service.CatalogService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// NameRequest is the JSON body for creating or renaming a manufacturer or
// distributor.
type NameRequest struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
}

// CreateProductRequest is the JSON request body for creating a product.
type CreateProductRequest struct {
	ManufacturerID string `json:"manufacturer_id" validate:"required,uuid"`
	Name           string `json:"name" validate:"required,min=1,max=255"`
	EAN            string `json:"ean" validate:"required,ean"`
	Description    string `json:"description" validate:"max=10000"`
}

// UpdateProductRequest is the JSON request body for updating a product.
type UpdateProductRequest struct {
	ManufacturerID *string `json:"manufacturer_id" validate:"omitempty,uuid"`
	Name           *string `json:"name" validate:"omitempty,min=1,max=255"`
	EAN            *string `json:"ean" validate:"omitempty,ean"`
	Description    *string `json:"description" validate:"omitempty,max=10000"`
}

// CreateItemRequest is the JSON request body for creating an item. Price is
// a decimal string such as "19.99".
type CreateItemRequest struct {
	ProductID     string `json:"product_id" validate:"required,uuid"`
	DistributorID string `json:"distributor_id" validate:"required,uuid"`
	Price         string `json:"price" validate:"required,money"`
	SKU           string `json:"sku" validate:"required,min=1,max=64"`
	Available     bool   `json:"available"`
}

// UpdateItemRequest is the JSON request body for updating an item.
type UpdateItemRequest struct {
	ProductID     *string `json:"product_id" validate:"omitempty,uuid"`
	DistributorID *string `json:"distributor_id" validate:"omitempty,uuid"`
	Price         *string `json:"price" validate:"omitempty,money"`
	SKU           *string `json:"sku" validate:"omitempty,min=1,max=64"`
	Available     *bool   `json:"available"`
}

// pathID reads and validates the {id} URL parameter.
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return "", false
	}
	return id.String(), true
}

// --- Manufacturers ---

// ListManufacturers handles GET /api/v1/admin/manufacturers
func (h *AdminHandler) ListManufacturers(w http.ResponseWriter, r *http.Request) {
	p, ok := listParams(w, r)
	if !ok {
		return
	}
	out, total, err := h.service.ListManufacturers(r.Context(), p.Page, p.PerPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeList(w, out, total, p)
}

// GetManufacturer handles GET /api/v1/admin/manufacturers/{id}
func (h *AdminHandler) GetManufacturer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	m, err := h.service.GetManufacturer(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, m)
}

// CreateManufacturer handles POST /api/v1/admin/manufacturers
func (h *AdminHandler) CreateManufacturer(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if !decode(w, r, &req) {
		return
	}
	m, err := h.service.CreateManufacturer(r.Context(), req.Name)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, m)
}

// UpdateManufacturer handles PUT /api/v1/admin/manufacturers/{id}
func (h *AdminHandler) UpdateManufacturer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req NameRequest
	if !decode(w, r, &req) {
		return
	}
	m, err := h.service.RenameManufacturer(r.Context(), id, req.Name)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, m)
}

// DeleteManufacturer handles DELETE /api/v1/admin/manufacturers/{id}
func (h *AdminHandler) DeleteManufacturer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteManufacturer(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Distributors ---

// ListDistributors handles GET /api/v1/admin/distributors
func (h *AdminHandler) ListDistributors(w http.ResponseWriter, r *http.Request) {
	p, ok := listParams(w, r)
	if !ok {
		return
	}
	out, total, err := h.service.ListDistributors(r.Context(), p.Page, p.PerPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeList(w, out, total, p)
}

// GetDistributor handles GET /api/v1/admin/distributors/{id}
func (h *AdminHandler) GetDistributor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, err := h.service.GetDistributor(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, d)
}

// CreateDistributor handles POST /api/v1/admin/distributors
func (h *AdminHandler) CreateDistributor(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if !decode(w, r, &req) {
		return
	}
	d, err := h.service.CreateDistributor(r.Context(), req.Name)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, d)
}

// UpdateDistributor handles PUT /api/v1/admin/distributors/{id}
func (h *AdminHandler) UpdateDistributor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req NameRequest
	if !decode(w, r, &req) {
		return
	}
	d, err := h.service.RenameDistributor(r.Context(), id, req.Name)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, d)
}

// DeleteDistributor handles DELETE /api/v1/admin/distributors/{id}
func (h *AdminHandler) DeleteDistributor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteDistributor(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Products ---

// ListProducts handles GET /api/v1/admin/products
func (h *AdminHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	p, ok := listParams(w, r)
	if !ok {
		return
	}
	out, total, err := h.service.ListProducts(r.Context(), p.Page, p.PerPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeList(w, out, total, p)
}

// GetProduct handles GET /api/v1/admin/products/{id}
func (h *AdminHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, p)
}

// CreateProduct handles POST /api/v1/admin/products
func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.service.CreateProduct(r.Context(), service.CreateProductInput{
		ManufacturerID: req.ManufacturerID,
		Name:           req.Name,
		EAN:            req.EAN,
		Description:    req.Description,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, p)
}

// UpdateProduct handles PUT /api/v1/admin/products/{id}
func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req UpdateProductRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.service.UpdateProduct(r.Context(), id, service.UpdateProductInput{
		ManufacturerID: req.ManufacturerID,
		Name:           req.Name,
		EAN:            req.EAN,
		Description:    req.Description,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, p)
}

// DeleteProduct handles DELETE /api/v1/admin/products/{id}
func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Items ---

// ListItems handles GET /api/v1/admin/items?product_id=&distributor_id=
func (h *AdminHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	p, ok := listParams(w, r)
	if !ok {
		return
	}
	f := service.ItemListFilter{
		ProductID:     r.URL.Query().Get("product_id"),
		DistributorID: r.URL.Query().Get("distributor_id"),
		Page:          p.Page,
		PerPage:       p.PerPage,
	}
	out, total, err := h.service.ListItems(r.Context(), f)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeList(w, out, total, p)
}

// GetItem handles GET /api/v1/admin/items/{id}
func (h *AdminHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	it, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, it)
}

// CreateItem handles POST /api/v1/admin/items
func (h *AdminHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if !decode(w, r, &req) {
		return
	}
	// The money tag has already checked the format.
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		writeInvalidParameter(w, "price must be a decimal amount")
		return
	}
	it, err := h.service.CreateItem(r.Context(), service.CreateItemInput{
		ProductID:     req.ProductID,
		DistributorID: req.DistributorID,
		Price:         price,
		SKU:           req.SKU,
		Available:     req.Available,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, it)
}

// UpdateItem handles PUT /api/v1/admin/items/{id}
func (h *AdminHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req UpdateItemRequest
	if !decode(w, r, &req) {
		return
	}
	input := service.UpdateItemInput{
		ProductID:     req.ProductID,
		DistributorID: req.DistributorID,
		SKU:           req.SKU,
		Available:     req.Available,
	}
	if req.Price != nil {
		price, err := decimal.NewFromString(*req.Price)
		if err != nil {
			writeInvalidParameter(w, "price must be a decimal amount")
			return
		}
		input.Price = &price
	}
	it, err := h.service.UpdateItem(r.Context(), id, input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, it)
}

// DeleteItem handles DELETE /api/v1/admin/items/{id}
func (h *AdminHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteItem(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
