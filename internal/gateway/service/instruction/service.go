package instruction

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"coachai/internal/artifact"
	"coachai/internal/gateway/service"
)

// ErrFieldMissing is returned when the instruction field is absent.
var ErrFieldMissing = errors.New("instruction field not found")

const (
	TypeUserPoseImage      = "userPoseImage"
	TypeReferencePoseImage = "referencePoseImage"

	nextNodeField = "nextNodeImageInstructions"
	poseImageMIME = "image/jpeg"
)

// NextNode is the content block handed to the next workflow node.
type NextNode struct {
	Role  string         `json:"role"`
	Parts []NextNodePart `json:"parts"`
}

type NextNodePart struct {
	Image                     string `json:"image"`
	NextNodeImageInstructions string `json:"nextNodeImageInstructions"`
}

// Service turns workflow output into model input blocks.
type Service struct{}

func New() *Service { return &Service{} }

// NextNodeContent pairs image with the document's nextNodeImageInstructions.
func (s *Service) NextNodeContent(jsonString, image string) (*NextNode, error) {
	if strings.TrimSpace(jsonString) == "" {
		return nil, service.Invalid("jsonString", "is required")
	}
	if strings.TrimSpace(image) == "" {
		return nil, service.Invalid("base64String", "is required")
	}
	doc, err := artifact.ParseString(jsonString)
	if err != nil {
		return nil, fmt.Errorf("parse json string: %w", err)
	}
	node, ok := doc.Get(nextNodeField)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFieldMissing, nextNodeField)
	}
	return &NextNode{
		Role:  "USER",
		Parts: []NextNodePart{{Image: image, NextNodeImageInstructions: node.Text()}},
	}, nil
}

// PoseImageContent builds a user turn holding the <type>Instructions text and
// the image at imageURL. When the document has an answer field, the
// instructions are read from the document it holds.
func (s *Service) PoseImageContent(jsonString, imageURL, typ string) (*genai.Content, error) {
	t := strings.TrimSpace(typ)
	if t != TypeUserPoseImage && t != TypeReferencePoseImage {
		return nil, service.Invalid("type", "must be %s or %s", TypeUserPoseImage, TypeReferencePoseImage)
	}
	if strings.TrimSpace(jsonString) == "" {
		return nil, service.Invalid("jsonString", "is required")
	}
	if strings.TrimSpace(imageURL) == "" {
		return nil, service.Invalid("imageUrl", "is required")
	}

	doc, err := artifact.ParseString(jsonString)
	if err != nil {
		return nil, fmt.Errorf("parse json string: %w", err)
	}
	target := doc
	if answer, ok := doc.Get("answer"); ok {
		switch answer.Kind {
		case artifact.KindString:
			target, err = artifact.ParseString(answer.String)
			if err != nil {
				return nil, fmt.Errorf("parse answer: %w", err)
			}
		case artifact.KindObject:
			target = answer
		}
	}

	field := t + "Instructions"
	node, ok := target.Get(field)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFieldMissing, field)
	}
	return &genai.Content{
		Role: "user",
		Parts: []*genai.Part{
			{Text: node.Text()},
			{FileData: &genai.FileData{MIMEType: poseImageMIME, FileURI: strings.TrimSpace(imageURL)}},
		},
	}, nil
}
