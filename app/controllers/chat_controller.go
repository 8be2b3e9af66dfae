package controllers

import (
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/charvilabs/charvi/app/chat"
	"github.com/charvilabs/charvi/pkg/bind"
	"github.com/charvilabs/charvi/pkg/response"
)

type ChatController struct {
	router *chat.Router
}

func NewChatController(router *chat.Router) *ChatController {
	return &ChatController{router: router}
}

// Message handles one chat turn. Works for anonymous callers too; identity,
// when present, comes from OptionalAuth.
func (c *ChatController) Message(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message string `json:"message" validate:"required,max=2000"`
	}
	if errs, err := bind.JSON(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	var userID *primitive.ObjectID
	if id, ok := currentUserID(r); ok {
		userID = &id
	}

	reply := c.router.Handle(r.Context(), userID, body.Message)
	response.Success(w, reply)
}
