package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxBody limita lo que se lee de respuestas de proveedores.
const maxBody = 1 << 20

// GetJSON hace GET autenticado con Bearer y decodifica la respuesta en out.
func GetJSON(ctx context.Context, c *http.Client, url, bearer string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		return &HTTPError{Status: resp.StatusCode, URL: url}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// HTTPError es una respuesta no-2xx de un proveedor. No incluye el body.
type HTTPError struct {
	Status int
	URL    string
}

func (e *HTTPError) Error() string { return fmt.Sprintf("provider http %d (%s)", e.Status, e.URL) }

// Str lee un string de un mapa crudo; números se formatean sin decimales.
func Str(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	case json.Number:
		return v.String()
	}
	return ""
}
