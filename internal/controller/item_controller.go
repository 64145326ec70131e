package controller

import (
	"strings"

	"design-sandbox-be/internal/dto"
	"design-sandbox-be/internal/pkg/serverutils"
	"design-sandbox-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IItemController interface {
	RegisterRoutes(r fiber.Router)
	List(ctx *fiber.Ctx) error
	Upload(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	Search(ctx *fiber.Ctx) error
}

type itemController struct {
	itemService   service.IItemService
	searchService service.ISearchService
}

func NewItemController(itemService service.IItemService, searchService service.ISearchService) IItemController {
	return &itemController{
		itemService:   itemService,
		searchService: searchService,
	}
}

func (c *itemController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/item/v1")
	// List and search stay open; the sandbox gate sits in front of them.
	h.Get("", c.List)
	h.Post("search", c.Search)
	// Mutations require the sandbox credential.
	h.Post("", serverutils.JwtMiddleware, c.Upload)
	h.Put(":id", serverutils.JwtMiddleware, c.Update)
	h.Delete(":id", serverutils.JwtMiddleware, c.Delete)
}

func (c *itemController) List(ctx *fiber.Ctx) error {
	categoryId := ctx.Query("category_id")
	componentKey := ctx.Query("component_key")

	res, err := c.itemService.List(ctx.Context(), categoryId, componentKey)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list items", res))
}

func (c *itemController) Upload(ctx *fiber.Ctx) error {
	req := dto.UploadItemRequest{
		CategoryId:   ctx.FormValue("category_id"),
		ComponentKey: ctx.FormValue("component_key"),
		Title:        ctx.FormValue("title"),
		Notes:        ctx.FormValue("notes"),
	}
	if tags := ctx.FormValue("tags"); tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			if t := strings.TrimSpace(tag); t != "" {
				req.Tags = append(req.Tags, t)
			}
		}
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	// Asset is optional; text-only references are allowed.
	file, err := ctx.FormFile("asset")
	if err != nil {
		file = nil
	}

	res, err := c.itemService.Upload(ctx.Context(), &req, file, ctx.SaveFile)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success upload item", res))
}

func (c *itemController) Update(ctx *fiber.Ctx) error {
	idParam := ctx.Params("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid item id")
	}

	var req dto.UpdateItemRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	req.Id = id

	res, err := c.itemService.Update(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success update item", res))
}

func (c *itemController) Delete(ctx *fiber.Ctx) error {
	idParam := ctx.Params("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid item id")
	}

	if err := c.itemService.Delete(ctx.Context(), id); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success delete item", fiber.Map{"id": id}))
}

func (c *itemController) Search(ctx *fiber.Ctx) error {
	var req dto.SearchItemsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.searchService.Search(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success search items", res))
}
