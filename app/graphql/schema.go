// Package graphql exposes a read-only query surface over the catalog and the
// viewer's orders. Mutations stay on the REST API.
package graphql

import (
	"time"

	"github.com/graphql-go/graphql"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/charvilabs/charvi/app/models"
	"github.com/charvilabs/charvi/app/services"
	"github.com/charvilabs/charvi/pkg/apperr"
)

// viewer is the authenticated identity carried into resolvers.
type viewer struct {
	id    primitive.ObjectID
	admin bool
}

type viewerKey struct{}

var productType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Product",
	Fields: graphql.Fields{
		"id": &graphql.Field{
			Type: graphql.NewNonNull(graphql.ID),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(*models.Product).ID.Hex(), nil
			},
		},
		"title":       &graphql.Field{Type: graphql.String},
		"slug":        &graphql.Field{Type: graphql.String},
		"sku":         &graphql.Field{Type: graphql.String},
		"description": &graphql.Field{Type: graphql.String},
		"category":    &graphql.Field{Type: graphql.String},
		"price":       &graphql.Field{Type: graphql.Float},
		"stock":       &graphql.Field{Type: graphql.Int},
		"image":       &graphql.Field{Type: graphql.String},
	},
})

var productPageType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ProductPage",
	Fields: graphql.Fields{
		"products": &graphql.Field{
			Type: graphql.NewList(productType),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				page := p.Source.(services.ProductPage)
				out := make([]*models.Product, len(page.Products))
				for i := range page.Products {
					out[i] = &page.Products[i]
				}
				return out, nil
			},
		},
		"total":   &graphql.Field{Type: graphql.Int},
		"page":    &graphql.Field{Type: graphql.Int},
		"perPage": &graphql.Field{Type: graphql.Int},
	},
})

var lineItemType = graphql.NewObject(graphql.ObjectConfig{
	Name: "LineItem",
	Fields: graphql.Fields{
		"productId": &graphql.Field{
			Type: graphql.NewNonNull(graphql.ID),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(models.LineItem).ProductID.Hex(), nil
			},
		},
		"title":    &graphql.Field{Type: graphql.String},
		"price":    &graphql.Field{Type: graphql.Float},
		"quantity": &graphql.Field{Type: graphql.Int},
		"image":    &graphql.Field{Type: graphql.String},
		"subtotal": &graphql.Field{
			Type: graphql.Float,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(models.LineItem).Subtotal(), nil
			},
		},
	},
})

var orderType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Order",
	Fields: graphql.Fields{
		"id": &graphql.Field{
			Type: graphql.NewNonNull(graphql.ID),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return orderSource(p).ID.Hex(), nil
			},
		},
		"code":   &graphql.Field{Type: graphql.String},
		"status": &graphql.Field{Type: graphql.String},
		"items": &graphql.Field{
			Type: graphql.NewList(lineItemType),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return orderSource(p).Items, nil
			},
		},
		"totalAmount":     &graphql.Field{Type: graphql.Float},
		"shippingAddress": &graphql.Field{Type: graphql.String},
		"orderDate": &graphql.Field{
			Type: graphql.String,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return orderSource(p).OrderDate.Format(time.RFC3339), nil
			},
		},
	},
})

// orderSource accepts both the pointer a single-order resolver returns and
// the values a list resolver yields.
func orderSource(p graphql.ResolveParams) *models.Order {
	switch o := p.Source.(type) {
	case *models.Order:
		return o
	case models.Order:
		return &o
	default:
		return &models.Order{}
	}
}

func newSchema(products *services.ProductService, orders *services.OrderService) (graphql.Schema, error) {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"products": &graphql.Field{
				Type: productPageType,
				Args: graphql.FieldConfigArgument{
					"category": &graphql.ArgumentConfig{Type: graphql.String},
					"page":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1},
					"perPage":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					category, _ := p.Args["category"].(string)
					page, _ := p.Args["page"].(int)
					perPage, _ := p.Args["perPage"].(int)
					return products.List(p.Context, category, int64(page), int64(perPage))
				},
			},
			"product": &graphql.Field{
				Type: productType,
				Args: graphql.FieldConfigArgument{
					"ref": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return products.GetByRef(p.Context, p.Args["ref"].(string))
				},
			},
			"order": &graphql.Field{
				Type: orderType,
				Args: graphql.FieldConfigArgument{
					"code": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					v, ok := p.Context.Value(viewerKey{}).(viewer)
					if !ok {
						return nil, apperr.Unauthorized("login required")
					}
					order, err := orders.GetByCode(p.Context, p.Args["code"].(string))
					if err != nil {
						return nil, err
					}
					if !v.admin && order.UserID != v.id {
						return nil, services.ErrOrderNotFound
					}
					return order, nil
				},
			},
			"myOrders": &graphql.Field{
				Type: graphql.NewList(orderType),
				Args: graphql.FieldConfigArgument{
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 10},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					v, ok := p.Context.Value(viewerKey{}).(viewer)
					if !ok {
						return nil, apperr.Unauthorized("login required")
					}
					limit, _ := p.Args["limit"].(int)
					return orders.Recent(p.Context, v.id, int64(limit))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: query})
}
