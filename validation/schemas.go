package validation

import (
	"strings"

	"github.com/oakhaven/storefront/models"
)

// ServiceCategories are the services a contact request can ask about.
var ServiceCategories = []string{
	"design-consultation",
	"interior-styling",
	"custom-furniture",
	"upholstery",
	"curtains-blinds",
	"delivery-assembly",
	"sample",
	"other",
}

// ProductCategories are the catalog departments a request can reference.
var ProductCategories = []string{
	"sofas",
	"armchairs",
	"beds",
	"dining",
	"storage",
	"lighting",
	"rugs",
	"outdoor",
	"curtains",
	"fabrics",
}

func nameRule() Rule {
	return Rule{Field: "name", Tag: "required,min=2,max=50,personname", Messages: map[string]string{
		"required":   "Name is required",
		"min":        "Name must be at least 2 characters",
		"max":        "Name must be less than 50 characters",
		"personname": "Name can only contain letters, spaces, hyphens, and apostrophes",
	}}
}

func emailRule() Rule {
	return Rule{Field: "email", Tag: "required,max=254,email", Messages: map[string]string{
		"required": "Email is required",
		"max":      "Email must be less than 254 characters",
		"email":    "Please enter a valid email address",
	}}
}

func phoneRule(required bool) Rule {
	tag := "omitempty,phone_au"
	if required {
		tag = "required,phone_au"
	}
	return Rule{Field: "phone", Tag: tag, Messages: map[string]string{
		"required": "Phone number is required",
		"phone_au": "Please enter a valid Australian phone number",
	}}
}

func postcodeRule(required bool) Rule {
	tag := "omitempty,postcode"
	if required {
		tag = "required,postcode"
	}
	return Rule{Field: "postcode", Tag: tag, Messages: map[string]string{
		"required": "Postcode is required",
		"postcode": "Postcode must be 4 digits",
	}}
}

func addressRule(required bool) Rule {
	tag := "omitempty,min=5,max=200"
	if required {
		tag = "required,min=5,max=200"
	}
	return Rule{Field: "address", Tag: tag, Messages: map[string]string{
		"required": "Address is required",
		"min":      "Address must be at least 5 characters",
		"max":      "Address must be less than 200 characters",
	}}
}

func productRule(required bool) Rule {
	tag := "omitempty,oneof=" + strings.Join(ProductCategories, " ")
	if required {
		tag = "required,oneof=" + strings.Join(ProductCategories, " ")
	}
	return Rule{Field: "product", Tag: tag, Messages: map[string]string{
		"required": "Please choose a product",
		"oneof":    "Please choose a valid product category",
	}}
}

// DefaultSchemas returns the rule tables for every public form.
func DefaultSchemas() map[string]Schema {
	return map[string]Schema{
		models.FormContact: {
			nameRule(),
			emailRule(),
			phoneRule(false),
			{Field: "message", Tag: "required,min=10,max=2000", Messages: map[string]string{
				"required": "Message is required",
				"min":      "Message must be at least 10 characters",
				"max":      "Message must be less than 2000 characters",
			}},
			postcodeRule(false),
			addressRule(false),
			{Field: "service", Tag: "omitempty,oneof=" + strings.Join(ServiceCategories, " "), Messages: map[string]string{
				"oneof": "Please choose a valid service",
			}},
			productRule(false),
			{Field: "chatSummary", Tag: "omitempty,max=5000", Messages: map[string]string{
				"max": "Chat summary must be less than 5000 characters",
			}},
		},
		models.FormSample: {
			nameRule(),
			emailRule(),
			phoneRule(true),
			addressRule(true),
			postcodeRule(true),
			productRule(true),
			{Field: "message", Tag: "omitempty,max=2000", Messages: map[string]string{
				"max": "Message must be less than 2000 characters",
			}},
		},
		models.FormReview: {
			nameRule(),
			emailRule(),
			{Field: "rating", Kind: KindInt, Tag: "min=1,max=5", Messages: map[string]string{
				"":       "Rating must be between 1 and 5",
				"number": "Rating must be a whole number",
			}},
			{Field: "title", Tag: "required,min=5,max=100", Messages: map[string]string{
				"required": "Title is required",
				"min":      "Title must be at least 5 characters",
				"max":      "Title must be less than 100 characters",
			}},
			{Field: "comment", Tag: "required,min=10,max=1000", Messages: map[string]string{
				"required": "Comment is required",
				"min":      "Comment must be at least 10 characters",
				"max":      "Comment must be less than 1000 characters",
			}},
			{Field: "productId", Tag: "required,max=128", Messages: map[string]string{
				"required": "Product ID is required",
				"max":      "Product ID is too long",
			}},
			{Field: "captchaToken", Tag: "required", Messages: map[string]string{
				"required": "Please complete the verification",
			}},
		},
		models.FormReviewAction: {
			{Field: "reviewId", Tag: "required,max=64", Messages: map[string]string{
				"required": "Review ID is required",
				"max":      "Review ID is invalid",
			}},
			{Field: "action", Tag: "required,oneof=helpful flag", Messages: map[string]string{
				"required": "Action is required",
				"oneof":    "Action must be helpful or flag",
			}},
		},
		models.FormChat: {
			{Field: "messages", Kind: KindTurns, Tag: "required,min=1,max=20", Messages: map[string]string{
				"required": "Messages are required",
				"min":      "At least one message is required",
				"max":      "Conversation is limited to 20 messages",
				"array":    "Messages must be a list",
			}},
		},
	}
}
