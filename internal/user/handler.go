package user

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

type Handler struct {
	service *Service
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Password    string `json:"password"`
	Username    string `json:"username"`
	Gender      string `json:"gender"`
	Service     string `json:"service"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	BirthDate   string `json:"birth_date"`
	AvatarImage string `json:"avatar_image"`
	IsAdmin     bool   `json:"is_admin"`
	IsBlocked   bool   `json:"is_blocked"`
}

// profileUpdateRequest holds the fields a user may change on their own
// profile. Omitted fields stay nil and are left untouched.
type profileUpdateRequest struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Password    *string `json:"password"`
	Username    *string `json:"username"`
	Gender      *string `json:"gender"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	BirthDate   *string `json:"birth_date"`
	AvatarImage *string `json:"avatar_image"`
}

type adminUpdateRequest struct {
	IsAdmin   *bool `json:"is_admin"`
	IsBlocked *bool `json:"is_blocked"`
}

type loginResponse struct {
	JWT string `json:"JWT"`
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the user API. requireAuth guards the routes that
// need a login token.
func (h *Handler) RegisterRoutes(router fiber.Router, requireAuth fiber.Handler) {
	router.Get("/api/v1/users/me", requireAuth, h.getMe)

	router.Get("/api/v1/users", h.getUsers)
	router.Get("/api/v1/users/:id", h.getUser)
	router.Post("/api/v1/users/register", h.register)
	router.Post("/api/v1/users/login", h.login)
	router.Put("/api/v1/users/profile/:id", h.updateProfile)
	router.Put("/api/v1/users/:id", h.updateAdmin)
	router.Delete("/api/v1/users/:id", h.deleteUser)
}

func (h *Handler) getUsers(c *fiber.Ctx) error {
	users, err := h.service.List(c.UserContext())
	if err != nil {
		return HTTPError(err)
	}

	response := make([]User, 0, len(users))
	for _, user := range users {
		response = append(response, sanitizeUser(user))
	}
	return c.JSON(response)
}

func (h *Handler) getUser(c *fiber.Ctx) error {
	user, err := h.service.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return HTTPError(err)
	}

	return c.JSON(sanitizeUser(user))
}

func (h *Handler) getMe(c *fiber.Ctx) error {
	userID, err := GetUserIDFromCtx(c)
	if err != nil {
		return err
	}

	user, err := h.service.GetByID(c.UserContext(), userID)
	if err != nil {
		return HTTPError(err)
	}

	return c.JSON(sanitizeUser(user))
}

func (h *Handler) register(c *fiber.Ctx) error {
	payload := new(registerRequest)
	if err := c.BodyParser(payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	created, err := h.service.Register(c.UserContext(), User{
		FirstName:   payload.FirstName,
		LastName:    payload.LastName,
		Password:    payload.Password,
		Username:    payload.Username,
		Gender:      payload.Gender,
		Service:     payload.Service,
		Email:       payload.Email,
		Phone:       payload.Phone,
		BirthDate:   payload.BirthDate,
		AvatarImage: payload.AvatarImage,
		IsAdmin:     payload.IsAdmin,
		IsBlocked:   payload.IsBlocked,
	})
	if err != nil {
		return HTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(sanitizeUser(created))
}

func (h *Handler) login(c *fiber.Ctx) error {
	payload := new(loginRequest)
	if err := c.BodyParser(payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	token, err := h.service.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return HTTPError(err)
	}

	return c.JSON(loginResponse{JWT: token})
}

func (h *Handler) updateProfile(c *fiber.Ctx) error {
	payload := new(profileUpdateRequest)
	if err := c.BodyParser(payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	updated, err := h.service.UpdateProfile(c.UserContext(), c.Params("id"), Patch{
		FirstName:   payload.FirstName,
		LastName:    payload.LastName,
		Password:    payload.Password,
		Username:    payload.Username,
		Gender:      payload.Gender,
		Email:       payload.Email,
		Phone:       payload.Phone,
		BirthDate:   payload.BirthDate,
		AvatarImage: payload.AvatarImage,
	})
	if err != nil {
		return HTTPError(err)
	}

	return c.JSON(sanitizeUser(updated))
}

func (h *Handler) updateAdmin(c *fiber.Ctx) error {
	payload := new(adminUpdateRequest)
	if err := c.BodyParser(payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	updated, err := h.service.UpdateAdmin(c.UserContext(), c.Params("id"), payload.IsAdmin, payload.IsBlocked)
	if err != nil {
		return HTTPError(err)
	}

	return c.JSON(sanitizeUser(updated))
}

func (h *Handler) deleteUser(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		return HTTPError(err)
	}

	return c.JSON(fiber.Map{"message": "user deleted"})
}

// HTTPError maps a service error onto the status code the API reports for it.
func HTTPError(err error) *fiber.Error {
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &fiberErr):
		return fiberErr
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrConflict), errors.Is(err, ErrInvalidCredentials):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidService),
		errors.Is(err, ErrInvalidGender),
		errors.Is(err, ErrInvalidBirthDate),
		errors.Is(err, ErrMissingFields),
		errors.Is(err, ErrEmptyField):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	message := "internal server error"
	if err != nil && err.Error() != "" {
		message = err.Error()
	}
	return fiber.NewError(fiber.StatusInternalServerError, message)
}

// GetUserIDFromCtx extracts the id claim from the token the JWT middleware
// stored in c.Locals("user").
func GetUserIDFromCtx(c *fiber.Ctx) (string, error) {
	tok, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return "", fiber.ErrUnauthorized
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", fiber.ErrUnauthorized
	}
	id, ok := claims["id"].(string)
	if !ok || id == "" {
		return "", fiber.ErrUnauthorized
	}
	return id, nil
}
