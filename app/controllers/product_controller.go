package controllers

import (
	"io"
	"net/http"

	"github.com/charvilabs/charvi/app/models"
	"github.com/charvilabs/charvi/app/services"
	"github.com/charvilabs/charvi/pkg/bind"
	"github.com/charvilabs/charvi/pkg/response"
	"github.com/charvilabs/charvi/pkg/router"
)

const maxImageBytes = 8 << 20 // 8 MB

type ProductController struct {
	products *services.ProductService
	reviews  *services.ReviewService
}

func NewProductController(products *services.ProductService, reviews *services.ReviewService) *ProductController {
	return &ProductController{products: products, reviews: reviews}
}

type productInput struct {
	Title       string  `json:"title" validate:"required,min=2,max=200"`
	Slug        string  `json:"slug" validate:"nullable,alpha_dash"`
	SKU         string  `json:"sku" validate:"nullable,max=64"`
	Description string  `json:"description" validate:"nullable,max=5000"`
	Category    string  `json:"category" validate:"nullable,max=100"`
	Price       float64 `json:"price" validate:"gte=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
}

func (in productInput) model() *models.Product {
	return &models.Product{
		Title:       in.Title,
		Slug:        in.Slug,
		SKU:         in.SKU,
		Description: in.Description,
		Category:    in.Category,
		Price:       in.Price,
		Stock:       in.Stock,
	}
}

func (c *ProductController) List(w http.ResponseWriter, r *http.Request) {
	page := queryInt64(r, "page", 1)
	limit := queryInt64(r, "limit", 20)

	out, err := c.products.List(r.Context(), r.URL.Query().Get("category"), page, limit)
	if err != nil {
		response.FromError(w, err)
		return
	}

	totalPages := int(out.Total / out.PerPage)
	if out.Total%out.PerPage != 0 {
		totalPages++
	}
	response.Paginated(w, out.Products, response.Pagination{
		Page:       int(out.Page),
		Limit:      int(out.PerPage),
		Total:      out.Total,
		TotalPages: totalPages,
	})
}

// Get accepts a Mongo id, SKU or slug.
func (c *ProductController) Get(w http.ResponseWriter, r *http.Request) {
	p, err := c.products.GetByRef(r.Context(), router.Param(r, "ref"))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, p)
}

func (c *ProductController) Create(w http.ResponseWriter, r *http.Request) {
	var body productInput
	if errs, err := bind.JSON(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	p, err := c.products.Create(r.Context(), body.model())
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Created(w, p)
}

func (c *ProductController) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.FromError(w, err)
		return
	}

	var body productInput
	if errs, err := bind.JSON(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	p, err := c.products.Update(r.Context(), id, body.model())
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, p)
}

func (c *ProductController) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.FromError(w, err)
		return
	}
	if err := c.products.Delete(r.Context(), id); err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, map[string]string{"message": "Product deleted"})
}

// UploadImage accepts a multipart form with an "image" file field.
func (c *ProductController) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.FromError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "could not read image")
		return
	}

	p, err := c.products.UploadImage(r.Context(), id, header.Filename, data)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, p)
}

// ─── Reviews ──────────────────────────────────────────────────────────────────

func (c *ProductController) SubmitReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		response.Unauthorized(w)
		return
	}
	productID, err := pathID(r, "id")
	if err != nil {
		response.FromError(w, err)
		return
	}

	var body struct {
		Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
		Comment string `json:"comment" validate:"nullable,max=2000"`
	}
	if errs, err := bind.JSON(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	pr, err := c.reviews.Submit(r.Context(), userID, productID, body.Rating, body.Comment)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Created(w, pr)
}

func (c *ProductController) ListReviews(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "id")
	if err != nil {
		response.FromError(w, err)
		return
	}

	pr, err := c.reviews.ForProduct(r.Context(), productID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	avg, ok, err := c.reviews.AverageRating(r.Context(), productID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	out := map[string]interface{}{"reviews": pr.Reviews}
	if ok {
		out["averageRating"] = avg
	}
	response.Success(w, out)
}
