package deliveries

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/safatanc/gsalt-checkout/internal/app/errors"
	"github.com/safatanc/gsalt-checkout/internal/app/middlewares"
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/safatanc/gsalt-checkout/internal/app/pkg"
	"github.com/safatanc/gsalt-checkout/internal/app/services"
)

type CatalogHandler struct {
	catalogService *services.CatalogService
	cartService    *services.CartService
	authMiddleware *middlewares.AuthMiddleware
}

func NewCatalogHandler(catalogService *services.CatalogService, cartService *services.CartService, authMiddleware *middlewares.AuthMiddleware) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		cartService:    cartService,
		authMiddleware: authMiddleware,
	}
}

func (h *CatalogHandler) RegisterRoutes(router fiber.Router) {
	productGroup := router.Group("/products")
	productGroup.Get("/", h.GetProducts)
	productGroup.Get("/:id", h.GetProduct)
	productGroup.Post("/", h.authMiddleware.AuthConnect, h.authMiddleware.AuthAdmin, h.CreateProduct)

	cartGroup := router.Group("/cart", h.authMiddleware.AuthConnect)
	cartGroup.Get("/", h.GetCart)
	cartGroup.Post("/items", h.AddItem)
	cartGroup.Patch("/items/:productId", h.UpdateItem)
	cartGroup.Delete("/items/:productId", h.RemoveItem)
}

func (h *CatalogHandler) GetProducts(c *fiber.Ctx) error {
	products, err := h.catalogService.ListProducts(c.UserContext())
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, products)
}

func (h *CatalogHandler) GetProduct(c *fiber.Ctx) error {
	product, err := h.catalogService.GetProduct(c.UserContext(), c.Params("id"))
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, product)
}

func (h *CatalogHandler) CreateProduct(c *fiber.Ctx) error {
	var req models.ProductCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return pkg.ErrorResponse(c, errors.NewBadRequestError("Invalid request body"))
	}

	product, err := h.catalogService.CreateProduct(&req)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.CreatedResponse(c, product)
}

func (h *CatalogHandler) GetCart(c *fiber.Ctx) error {
	connectUser := middlewares.CurrentUser(c)

	lines, err := h.cartService.GetLines(c.UserContext(), connectUser.ID)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, lines)
}

func (h *CatalogHandler) AddItem(c *fiber.Ctx) error {
	connectUser := middlewares.CurrentUser(c)

	var req models.CartItemRequest
	if err := c.BodyParser(&req); err != nil {
		return pkg.ErrorResponse(c, errors.NewBadRequestError("Invalid request body"))
	}

	lines, err := h.cartService.AddItem(c.UserContext(), connectUser.ID, &req)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, lines)
}

func (h *CatalogHandler) UpdateItem(c *fiber.Ctx) error {
	connectUser := middlewares.CurrentUser(c)

	productID, err := parseProductID(c)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	var req models.CartQuantityRequest
	if err := c.BodyParser(&req); err != nil {
		return pkg.ErrorResponse(c, errors.NewBadRequestError("Invalid request body"))
	}

	lines, err := h.cartService.UpdateQuantity(c.UserContext(), connectUser.ID, productID, &req)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, lines)
}

func (h *CatalogHandler) RemoveItem(c *fiber.Ctx) error {
	connectUser := middlewares.CurrentUser(c)

	productID, err := parseProductID(c)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	lines, err := h.cartService.RemoveItem(c.UserContext(), connectUser.ID, productID)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, lines)
}

func parseProductID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("productId"), 10, 64)
	if err != nil {
		return 0, errors.NewBadRequestError("Invalid product ID format")
	}
	return uint(id), nil
}
