package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogkit/promotion-system/internal/model"
)

// TestNew verifies that New() returns a properly configured validator
func TestNew(t *testing.T) {
	v := New()
	require.NotNil(t, v, "New() should return a non-nil validator")
}

// TestNotblankValidator tests the custom notblank validation
func TestNotblankValidator(t *testing.T) {
	v := New()

	type TestStruct struct {
		Name string `validate:"notblank"`
	}

	testCases := []struct {
		name        string
		input       string
		expectError bool
	}{
		{"valid_string", "valid", false},
		{"valid_with_spaces", "  valid  ", false},
		{"whitespace_only_spaces", "   ", true},
		{"whitespace_only_tabs", "\t\t", true},
		{"whitespace_only_newlines", "\n\n", true},
		{"whitespace_mixed", " \t\n ", true},
		{"empty_string", "", true},
		{"single_char", "a", false},
		{"unicode_content", "日本語", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ts := TestStruct{Name: tc.input}
			err := v.Struct(ts)

			if tc.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func discountPtr(f float64) *float64 { return &f }

// TestCreatePromotionRequest_Validation exercises the request DTO tags end to end.
func TestCreatePromotionRequest_Validation(t *testing.T) {
	v := New()

	valid := model.CreatePromotionRequest{
		Name:          "WINTER_SALE",
		StartDate:     "2025-01-01",
		EndDate:       "2025-01-31",
		DiscountValue: discountPtr(20),
	}

	testCases := []struct {
		name        string
		mutate      func(r *model.CreatePromotionRequest)
		expectError bool
	}{
		{"valid_request", func(r *model.CreatePromotionRequest) {}, false},
		{"missing_name", func(r *model.CreatePromotionRequest) { r.Name = "" }, true},
		{"whitespace_name", func(r *model.CreatePromotionRequest) { r.Name = "   " }, true},
		{"bad_date_format", func(r *model.CreatePromotionRequest) { r.StartDate = "01/01/2025" }, true},
		{"missing_end_date", func(r *model.CreatePromotionRequest) { r.EndDate = "" }, true},
		{"missing_discount", func(r *model.CreatePromotionRequest) { r.DiscountValue = nil }, true},
		{"zero_discount_allowed", func(r *model.CreatePromotionRequest) { r.DiscountValue = discountPtr(0) }, false},
		{"bad_category_uuid", func(r *model.CreatePromotionRequest) { s := "not-a-uuid"; r.CategoryID = &s }, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := valid
			tc.mutate(&req)
			err := v.Struct(req)

			if tc.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestProductLinkRequest_Validation verifies the product link DTO rejects
// empty lists and malformed ids.
func TestProductLinkRequest_Validation(t *testing.T) {
	v := New()

	testCases := []struct {
		name        string
		productIDs  []string
		expectError bool
	}{
		{"single_valid_id", []string{"a3bb189e-8bf9-4c8b-9be6-6f6d2f5c9a3d"}, false},
		{"empty_list", []string{}, true},
		{"nil_list", nil, true},
		{"malformed_id", []string{"not-a-uuid"}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := model.ProductLinkRequest{ProductIDs: tc.productIDs}
			err := v.Struct(req)

			if tc.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
