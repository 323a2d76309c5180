package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/HiveCTF/cyberhive"
	"github.com/gorilla/schema"
)

var decoder *schema.Decoder

func init() {
	decoder = schema.NewDecoder()
	decoder.SetAliasTag("json")
	decoder.IgnoreUnknownKeys(true)
}

func returnData(w http.ResponseWriter, retData any) {
	cyberhive.StatusData(w, "success", retData, 200)
}

func errorData(w http.ResponseWriter, retData any, errCode int) {
	cyberhive.StatusData(w, "error", retData, errCode)
}

func statusError(w http.ResponseWriter, err *cyberhive.StatusError) {
	err.WriteError(w)
}

func parseJsonBody[T any](r *http.Request, output *T) *cyberhive.StatusError {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(output); err != nil {
		return cyberhive.Statusf(400, "Invalid JSON input.")
	}
	return nil
}

// parseRequest decodes query/form parameters into args using the json
// field names.
func parseRequest[T any](r *http.Request, args *T) *cyberhive.StatusError {
	if err := r.ParseForm(); err != nil {
		return cyberhive.Statusf(400, "Could not parse form")
	}
	if err := decoder.Decode(args, r.Form); err != nil {
		return cyberhive.Statusf(400, "Invalid query parameters")
	}
	return nil
}

func getAuthHeader(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
