package document

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	errors "github.com/frahmantamala/hr-portal/internal"
	"github.com/frahmantamala/hr-portal/internal/core/common/validation"
	"github.com/frahmantamala/hr-portal/internal/transport/httpclient"
)

const MaxUploadSize = 10 << 20

type Type string

const (
	TypeIDCard      Type = "ID_CARD"
	TypeTaxID       Type = "TAX_ID"
	TypeBankAccount Type = "BANK_ACCOUNT"
	TypeDiploma     Type = "DIPLOMA"
	TypeContract    Type = "CONTRACT"
	TypeOther       Type = "OTHER"
)

var AllowedTypes = []Type{TypeIDCard, TypeTaxID, TypeBankAccount, TypeDiploma, TypeContract, TypeOther}

var allowedExtensions = map[string]bool{
	".pdf": true, ".png": true, ".jpg": true, ".jpeg": true,
}

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

type Document struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employee_id"`
	Type       Type      `json:"type"`
	FileName   string    `json:"file_name"`
	Status     Status    `json:"status"`
	ReviewNote string    `json:"review_note,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type UploadDTO struct {
	Type     Type
	FileName string
	Size     int64
}

func (d UploadDTO) Validate() *errors.AppError {
	allowed := make([]string, len(AllowedTypes))
	for i, t := range AllowedTypes {
		allowed[i] = string(t)
	}
	v := validation.NewValidator()
	v.Field("type", string(d.Type)).Required().OneOf(allowed...)
	v.Field("file", d.FileName).Required().MaxLength(255).Custom(func(value interface{}) *errors.AppError {
		name, _ := value.(string)
		if name != "" && !allowedExtensions[strings.ToLower(filepath.Ext(name))] {
			return errors.NewValidationFieldError("file", "only pdf, png and jpeg files are accepted", errors.ErrCodeUnsupportedUploadField)
		}
		return nil
	})
	v.Field("size", d.Size).Custom(func(value interface{}) *errors.AppError {
		if size, _ := value.(int64); size > MaxUploadSize {
			return errors.NewValidationFieldError("file", "file exceeds 10 MB", errors.ErrCodeFieldTooLong)
		}
		return nil
	})
	return v.Validate()
}

type ReviewDocumentDTO struct {
	Decision Status `json:"decision"`
	Note     string `json:"note,omitempty"`
}

func (d ReviewDocumentDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("decision", string(d.Decision)).Required().OneOf(string(StatusApproved), string(StatusRejected))
	v.Field("note", d.Note).MaxLength(2000)
	if d.Decision == StatusRejected {
		v.Field("note", d.Note).Required()
	}
	return v.Validate()
}

// Client talks to the document collaborator.
type Client struct {
	*httpclient.Client
}

func NewClient(base *httpclient.Client) *Client {
	return &Client{Client: base}
}

// List returns the caller's documents, or every document in status when status is set
// (reviewers only).
func (c *Client) List(ctx context.Context, status Status) ([]Document, error) {
	path := "/api/v1/documents"
	if status != "" {
		path += "?" + url.Values{"status": {string(status)}}.Encode()
	}
	var out []Document
	if err := c.DoJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return out, nil
}

func (c *Client) Upload(ctx context.Context, dto UploadDTO, content io.Reader) (*Document, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("type", string(dto.Type)); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	part, err := mw.CreateFormFile("file", filepath.Base(dto.FileName))
	if err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if _, err := io.Copy(part, io.LimitReader(content, MaxUploadSize+1)); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}

	header := http.Header{}
	header.Set("Content-Type", mw.FormDataContentType())
	data, err := c.Do(ctx, http.MethodPost, "/api/v1/documents", buf.Bytes(), header)
	if err != nil {
		return nil, fmt.Errorf("upload document: %w", err)
	}

	var out Document
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("upload document: %w", err)
	}
	return &out, nil
}

func (c *Client) Review(ctx context.Context, id string, dto ReviewDocumentDTO) (*Document, error) {
	var out Document
	if err := c.DoJSON(ctx, http.MethodPost, "/api/v1/documents/"+url.PathEscape(id)+"/review", dto, &out); err != nil {
		return nil, fmt.Errorf("review document %s: %w", id, err)
	}
	return &out, nil
}
