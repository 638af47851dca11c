// Package forms binds and validates user-submitted posts and comments.
// Validation never touches storage except to look up referenced groups.
package forms

import (
	"blog/models"
	"blog/services"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const (
	NonFieldErrors = "non_field_errors"

	msgRequired     = "Обязательное поле."
	msgMaxLength    = "Убедитесь, что это значение содержит не более %s символов."
	msgInvalidGroup = "Выберите корректный вариант. Этого варианта нет среди допустимых значений."
	msgInvalidImage = "Загрузите правильное изображение. Файл, который вы загрузили, поврежден или не является изображением."
	msgImageTooBig  = "Размер файла не должен превышать %d байт."
	msgInvalidInput = "Некорректные данные формы."
)

// Errors maps a field name to its messages.
type Errors map[string][]string

func (e Errors) Add(field, message string) {
	e[field] = append(e[field], message)
}

func (e Errors) Valid() bool {
	return len(e) == 0
}

type PostForm struct {
	Text  string `form:"text" json:"text" binding:"required"`
	Group *int64 `form:"group" json:"group"`
}

type CommentForm struct {
	Text string `form:"text" json:"text" binding:"required"`
}

type GroupFinder interface {
	FindGroupByID(ctx context.Context, id int64) (*models.Group, error)
	ListGroups(ctx context.Context) ([]models.Group, error)
}

type Validator struct {
	Groups       GroupFinder
	MaxImageSize int64
}

func NewValidator(groups GroupFinder, maxImageSize int64) *Validator {
	return &Validator{Groups: groups, MaxImageSize: maxImageSize}
}

// BindPost binds the submitted post form. The returned input is only
// meaningful when errs is empty; err is reserved for storage failures.
func (v *Validator) BindPost(c *gin.Context) (form PostForm, input services.PostInput, errs Errors, err error) {
	errs = Errors{}
	if bindErr := c.ShouldBind(&form); bindErr != nil {
		translate(bindErr, errs)
	}
	if form.Group != nil && *form.Group == 0 {
		form.Group = nil
	}

	text := strings.TrimSpace(form.Text)
	if _, failed := errs["text"]; !failed {
		switch {
		case text == "":
			errs.Add("text", msgRequired)
		case utf8.RuneCountInString(text) > models.PostTextMaxLength:
			errs.Add("text", fmt.Sprintf(msgMaxLength, strconv.Itoa(models.PostTextMaxLength)))
		}
	}

	if form.Group != nil {
		_, lookupErr := v.Groups.FindGroupByID(c.Request.Context(), *form.Group)
		switch {
		case errors.Is(lookupErr, services.ErrNotFound):
			errs.Add("group", msgInvalidGroup)
		case lookupErr != nil:
			return form, input, errs, lookupErr
		}
	}

	upload, imageErr := v.readImage(c)
	if imageErr != "" {
		errs.Add("image", imageErr)
	}

	input = services.PostInput{
		Text:    text,
		GroupID: form.Group,
		Image:   upload,
	}
	return form, input, errs, nil
}

func (v *Validator) BindComment(c *gin.Context) (form CommentForm, errs Errors) {
	errs = Errors{}
	if bindErr := c.ShouldBind(&form); bindErr != nil {
		translate(bindErr, errs)
	}
	if _, failed := errs["text"]; !failed && strings.TrimSpace(form.Text) == "" {
		errs.Add("text", msgRequired)
	}
	return form, errs
}

// readImage returns the decoded upload or a user-facing error message.
// A request without an image is valid.
func (v *Validator) readImage(c *gin.Context) (*services.Upload, string) {
	header, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, ""
		}
		return nil, msgInvalidImage
	}
	if v.MaxImageSize > 0 && header.Size > v.MaxImageSize {
		return nil, fmt.Sprintf(msgImageTooBig, v.MaxImageSize)
	}

	file, err := header.Open()
	if err != nil {
		return nil, msgInvalidImage
	}
	defer file.Close()

	reader := io.Reader(file)
	if v.MaxImageSize > 0 {
		reader = io.LimitReader(file, v.MaxImageSize+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, msgInvalidImage
	}
	if v.MaxImageSize > 0 && int64(len(data)) > v.MaxImageSize {
		return nil, fmt.Sprintf(msgImageTooBig, v.MaxImageSize)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, msgInvalidImage
	}
	return &services.Upload{Filename: header.Filename, Format: format, Data: data}, ""
}

func translate(err error, errs Errors) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.Add(NonFieldErrors, msgInvalidInput)
		return
	}
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			errs.Add(field, msgRequired)
		case "max":
			errs.Add(field, fmt.Sprintf(msgMaxLength, fe.Param()))
		default:
			errs.Add(field, msgInvalidInput)
		}
	}
}

// Descriptor is the JSON shape of a form shown to the client.
type Descriptor struct {
	Fields  []string            `json:"fields"`
	Values  any                 `json:"values"`
	Errors  Errors              `json:"errors"`
	Choices map[string][]Choice `json:"choices,omitempty"`
}

type Choice struct {
	Value int64  `json:"value"`
	Label string `json:"label"`
}

func PostDescriptor(form PostForm, errs Errors) Descriptor {
	if errs == nil {
		errs = Errors{}
	}
	return Descriptor{Fields: []string{"text", "group", "image"}, Values: form, Errors: errs}
}

// DescribePost adds the group choices to the post form.
func (v *Validator) DescribePost(ctx context.Context, form PostForm, errs Errors) (Descriptor, error) {
	groups, err := v.Groups.ListGroups(ctx)
	if err != nil {
		return Descriptor{}, err
	}
	choices := make([]Choice, 0, len(groups))
	for _, group := range groups {
		choices = append(choices, Choice{Value: group.ID, Label: group.Title})
	}
	d := PostDescriptor(form, errs)
	d.Choices = map[string][]Choice{"group": choices}
	return d, nil
}

// PostFormFrom prefills the edit form with a stored post.
func PostFormFrom(post *models.Post) PostForm {
	return PostForm{Text: post.Text, Group: post.GroupID}
}
