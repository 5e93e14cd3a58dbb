package sources

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/envit/pkg/secretsource"
)

// fakeAzureClient implements AzureSecretsClientAPI without any network,
// serving listings from fixed pages and values from a map.
type fakeAzureClient struct {
	pages   [][]string
	secrets map[string]string
	getErr  map[string]error
	listErr error
}

func (f *fakeAzureClient) GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
	if err, ok := f.getErr[name]; ok {
		return azsecrets.GetSecretResponse{}, err
	}
	value, ok := f.secrets[name]
	if !ok {
		return azsecrets.GetSecretResponse{}, &azcore.ResponseError{
			StatusCode: http.StatusNotFound,
			ErrorCode:  "SecretNotFound",
		}
	}
	resp := azsecrets.GetSecretResponse{}
	resp.Value = &value
	return resp, nil
}

func (f *fakeAzureClient) NewListSecretPropertiesPager(options *azsecrets.ListSecretPropertiesOptions) *runtime.Pager[azsecrets.ListSecretPropertiesResponse] {
	pageIdx := 0
	return runtime.NewPager(runtime.PagingHandler[azsecrets.ListSecretPropertiesResponse]{
		More: func(resp azsecrets.ListSecretPropertiesResponse) bool {
			return resp.NextLink != nil
		},
		Fetcher: func(ctx context.Context, _ *azsecrets.ListSecretPropertiesResponse) (azsecrets.ListSecretPropertiesResponse, error) {
			if f.listErr != nil {
				return azsecrets.ListSecretPropertiesResponse{}, f.listErr
			}
			var resp azsecrets.ListSecretPropertiesResponse
			if pageIdx < len(f.pages) {
				for _, name := range f.pages[pageIdx] {
					id := azsecrets.ID("https://test.vault.azure.net/secrets/" + name + "/v1")
					resp.Value = append(resp.Value, &azsecrets.SecretProperties{ID: &id})
				}
			}
			pageIdx++
			if pageIdx < len(f.pages) {
				next := "page-" + string(rune('0'+pageIdx))
				resp.NextLink = &next
			}
			return resp, nil
		},
	})
}

func newTestAzureSource(t *testing.T, client AzureSecretsClientAPI) *AzureKeyVaultSource {
	t.Helper()
	src, err := NewAzureKeyVaultSource(
		map[string]interface{}{"vault_url": "https://test.vault.azure.net/"},
		WithAzureClient(client),
	)
	require.NoError(t, err)
	return src
}

func TestAzureKeyVaultListWalksAllPages(t *testing.T) {
	t.Parallel()

	src := newTestAzureSource(t, &fakeAzureClient{
		pages: [][]string{{"database-url", "redis"}, {"api-key"}},
	})

	descriptors, err := src.List(context.Background())
	require.NoError(t, err)

	names := make([]string, len(descriptors))
	for i, d := range descriptors {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"database-url", "redis", "api-key"}, names)
}

func TestAzureKeyVaultListFailure(t *testing.T) {
	t.Parallel()

	src := newTestAzureSource(t, &fakeAzureClient{
		pages:   [][]string{{"x"}},
		listErr: errors.New("vault unreachable"),
	})

	_, err := src.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "azure.keyvault")
}

func TestAzureKeyVaultListMapsAuthFailure(t *testing.T) {
	t.Parallel()

	src := newTestAzureSource(t, &fakeAzureClient{
		pages: [][]string{{"x"}},
		listErr: &azcore.ResponseError{
			StatusCode: http.StatusUnauthorized,
			ErrorCode:  "Unauthorized",
		},
	})

	_, err := src.List(context.Background())
	require.Error(t, err)

	var authErr secretsource.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "azure.keyvault", authErr.Source)
}

func TestAzureKeyVaultGet(t *testing.T) {
	t.Parallel()

	src := newTestAzureSource(t, &fakeAzureClient{
		secrets: map[string]string{"database-url": "postgres://db"},
	})
	ctx := context.Background()

	value, err := src.Get(ctx, "database-url")
	require.NoError(t, err)
	assert.Equal(t, "postgres://db", value)
}

func TestAzureKeyVaultGetMapsNotFound(t *testing.T) {
	t.Parallel()

	src := newTestAzureSource(t, &fakeAzureClient{secrets: map[string]string{}})

	_, err := src.Get(context.Background(), "absent")
	require.Error(t, err)
	assert.True(t, secretsource.IsNotFound(err))
}

func TestAzureKeyVaultGetMapsAuthFailure(t *testing.T) {
	t.Parallel()

	src := newTestAzureSource(t, &fakeAzureClient{
		getErr: map[string]error{"denied": &azcore.ResponseError{
			StatusCode: http.StatusForbidden,
			ErrorCode:  "Forbidden",
		}},
	})

	_, err := src.Get(context.Background(), "denied")
	require.Error(t, err)

	var authErr secretsource.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "azure.keyvault", authErr.Source)
	assert.False(t, secretsource.IsNotFound(err))
}

func TestAzureKeyVaultGetHardFailureIsNotNotFound(t *testing.T) {
	t.Parallel()

	src := newTestAzureSource(t, &fakeAzureClient{
		getErr: map[string]error{"broken": &azcore.ResponseError{
			StatusCode: http.StatusInternalServerError,
			ErrorCode:  "InternalError",
		}},
	})

	_, err := src.Get(context.Background(), "broken")
	require.Error(t, err)
	assert.False(t, secretsource.IsNotFound(err))

	var authErr secretsource.AuthError
	assert.False(t, errors.As(err, &authErr))
}

func TestAzureKeyVaultSourceName(t *testing.T) {
	t.Parallel()

	src := newTestAzureSource(t, &fakeAzureClient{})
	assert.Equal(t, "azure.keyvault", src.Name())
}
