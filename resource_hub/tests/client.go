package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type httpTestRequest struct {
	api http.Handler

	method   string
	endpoint string
	headers  map[string]string
	json     interface{}
	body     io.Reader
}

func newHttpTestRequest(api http.Handler, method, endpoint string) *httpTestRequest {
	return &httpTestRequest{
		api:      api,
		method:   method,
		endpoint: endpoint,
	}
}

func (r *httpTestRequest) Header(key, value string) *httpTestRequest {
	if r.headers == nil {
		r.headers = make(map[string]string)
	}
	r.headers[key] = value
	return r
}

func (r *httpTestRequest) Json(data interface{}) *httpTestRequest {
	r.json = data
	return r
}

// Multipart builds a file upload body with the given form fields.
func (r *httpTestRequest) Multipart(fields map[string]string, filename, content string) *httpTestRequest {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			panic(fmt.Sprintf("error writing multipart field %v: %v", key, err))
		}
	}

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		panic(fmt.Sprintf("error creating multipart file part: %v", err))
	}
	if _, err := part.Write([]byte(content)); err != nil {
		panic(fmt.Sprintf("error writing multipart file content: %v", err))
	}
	if err := writer.Close(); err != nil {
		panic(fmt.Sprintf("error closing multipart writer: %v", err))
	}

	r.body = body
	return r.Header("Content-Type", writer.FormDataContentType())
}

func (r *httpTestRequest) send() *httptest.ResponseRecorder {
	if r.json != nil {
		body := new(bytes.Buffer)
		if err := json.NewEncoder(body).Encode(r.json); err != nil {
			panic(fmt.Sprintf("error encoding json body for endpoint %v: %v", r.endpoint, err))
		}
		r.body = body
	}

	req := httptest.NewRequest(r.method, r.endpoint, r.body)
	for k, v := range r.headers {
		req.Header.Add(k, v)
	}

	w := httptest.NewRecorder()
	r.api.ServeHTTP(w, req)
	return w
}

// response body will be parsed into result, passing nil indicates that no result is returned.
func (r *httpTestRequest) Do(result interface{}) error {
	w := r.send()

	res := w.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("%v request to endpoint %v returned status %d, content '%v'", r.method, r.endpoint, res.StatusCode, w.Body.String())
	}

	if result != nil {
		err := json.NewDecoder(res.Body).Decode(result)
		if err != nil {
			return fmt.Errorf("error parsing %v response from endpoint %v: %w", r.method, r.endpoint, err)
		}
	}

	return nil
}

// DoExpectingStatus fails unless the response carries exactly the given
// status code.
func (r *httpTestRequest) DoExpectingStatus(status int) error {
	w := r.send()

	res := w.Result()
	defer res.Body.Close()

	if res.StatusCode != status {
		return fmt.Errorf("%v request to endpoint %v returned status %d (expected %d), content '%v'", r.method, r.endpoint, res.StatusCode, status, w.Body.String())
	}

	return nil
}

type client struct {
	api chi.Router
}

func (c *client) Get(endpoint string) *httpTestRequest {
	return newHttpTestRequest(c.api, "GET", endpoint)
}

func (c *client) Post(endpoint string) *httpTestRequest {
	return newHttpTestRequest(c.api, "POST", endpoint)
}

func (c *client) Delete(endpoint string) *httpTestRequest {
	return newHttpTestRequest(c.api, "DELETE", endpoint)
}

func (c *client) createUser(email string) (uuid.UUID, error) {
	var res map[string]uuid.UUID
	err := c.Post("/user/create").Json(map[string]string{"email": email}).Do(&res)
	if err != nil {
		return uuid.UUID{}, err
	}
	return res["user_id"], nil
}

func (c *client) uploadResource(ownerId uuid.UUID, filename, content string) (uuid.UUID, error) {
	var res map[string]uuid.UUID
	err := c.Post("/resource/create").
		Multipart(map[string]string{"owner_id": ownerId.String()}, filename, content).
		Do(&res)
	if err != nil {
		return uuid.UUID{}, err
	}
	return res["resource_id"], nil
}

func (c *client) setType(resourceId uuid.UUID, resourceType string) error {
	return c.Post(fmt.Sprintf("/resource/%v/type", resourceId)).
		Json(map[string]string{"resource_type": resourceType}).
		Do(nil)
}

func (c *client) createWorkspace(ownerId uuid.UUID, name string) (uuid.UUID, error) {
	var res map[string]uuid.UUID
	err := c.Post("/workspace/create").
		Json(map[string]interface{}{"owner_id": ownerId, "name": name}).
		Do(&res)
	if err != nil {
		return uuid.UUID{}, err
	}
	return res["workspace_id"], nil
}
