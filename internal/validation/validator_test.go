package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/titlekeep/titlekeep-server/internal/errors"
)

type tenantRequest struct {
	ID         string `json:"id" validate:"required,max=64"`
	WebhookURL string `json:"webhook_url" validate:"required,url"`
	Mention    string `json:"mention,omitempty" validate:"max=128"`
}

func TestValidatePasses(t *testing.T) {
	v := New()
	err := v.Validate(&tenantRequest{
		ID:         "guild-1",
		WebhookURL: "https://hooks.example.com/a",
	})
	assert.NoError(t, err)
}

func TestValidateReportsJSONFieldNames(t *testing.T) {
	v := New()
	err := v.Validate(&tenantRequest{WebhookURL: "not a url"})
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)

	details, ok := domainErr.Details.(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "id")
	assert.Contains(t, details, "webhook_url")
}

func TestValidateRangeTag(t *testing.T) {
	type shiftRequest struct {
		Hours int `json:"hours" validate:"gte=1,lte=72"`
	}

	v := New()
	assert.NoError(t, v.Validate(&shiftRequest{Hours: 12}))
	assert.Error(t, v.Validate(&shiftRequest{Hours: 73}))
}
