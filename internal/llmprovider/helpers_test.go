package llmprovider

import (
	"encoding/json"
	"net/http"
)

func decodeJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
