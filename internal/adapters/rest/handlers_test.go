package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"rental-system/internal/contextkeys"
	"rental-system/internal/core/domain"
	"rental-system/internal/core/port/usecases_port"
	"strings"
	"testing"
	"time"
)

type stubValidator struct{}

func (stubValidator) ValidateToken(_ context.Context, token string) (domain.Principal, error) {
	if strings.HasPrefix(token, "user-") {
		return domain.Principal{UserID: strings.TrimPrefix(token, "user-")}, nil
	}
	return domain.Principal{}, errors.New("bad token")
}

type fakeListingClient struct {
	props      []domain.Property
	state      usecases_port.ListingState
	createErr  error
	gotForm    domain.ListingForm
	gotImages  []string
	gotPatch   domain.PropertyPatch
	deleteRep  domain.StepReport
	callerSeen string
}

func (f *fakeListingClient) FetchAll(context.Context) []domain.Property { return f.props }

func (f *fakeListingClient) GetByID(_ context.Context, id string) (*domain.Property, error) {
	for _, p := range f.props {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeListingClient) Create(ctx context.Context, form domain.ListingForm, images []domain.ImageFile) (*usecases_port.CreateListingResult, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	user, _ := contextkeys.UserFromContext(ctx)
	f.callerSeen = user.UserID
	f.gotForm = form
	for _, img := range images {
		body, _ := io.ReadAll(img.Body)
		f.gotImages = append(f.gotImages, img.Name+":"+string(body))
	}
	report := domain.StepReport{Results: []domain.StepResult{
		{Step: domain.StepUploadImage, Target: "a.jpg"},
		{Step: domain.StepUploadImage, Target: "b.jpg", Err: errors.New("storage down")},
		{Step: domain.StepInsertListing, Policy: domain.AbortOnFailure},
	}}
	return &usecases_port.CreateListingResult{
		Property: form.ToProperty(user.UserID, []string{"https://cdn/a.jpg"}),
		Steps:    report,
	}, nil
}

func (f *fakeListingClient) Update(_ context.Context, id string, patch domain.PropertyPatch) (*domain.Property, error) {
	f.gotPatch = patch
	for _, p := range f.props {
		if p.ID == id {
			out := p.Apply(patch)
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeListingClient) Delete(context.Context, string) (domain.StepReport, error) {
	return f.deleteRep, nil
}

func (f *fakeListingClient) State() usecases_port.ListingState { return f.state }

type fakeConversationClient struct {
	convs   []domain.Conversation
	sendErr error
	readIDs []string
}

func (f *fakeConversationClient) FetchConversations(ctx context.Context) ([]domain.Conversation, error) {
	if _, ok := contextkeys.UserFromContext(ctx); !ok {
		return []domain.Conversation{}, nil
	}
	return f.convs, nil
}

func (f *fakeConversationClient) SendMessage(ctx context.Context, content, propertyID, receiverID string) (*domain.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	user, _ := contextkeys.UserFromContext(ctx)
	return &domain.Message{ID: "m1", ConversationID: "c1", SenderID: user.UserID, ReceiverID: receiverID, PropertyID: propertyID, Content: content}, nil
}

func (f *fakeConversationClient) MarkAsRead(_ context.Context, id string) error {
	f.readIDs = append(f.readIDs, id)
	return nil
}

func newTestRouter(lc *fakeListingClient, cc *fakeConversationClient) http.Handler {
	return NewRouter(
		ServerConfig{AllowedOrigins: []string{"http://example.test"}},
		NewListingHandler(lc, 1<<20),
		NewConversationHandler(cc),
		NewAuthMiddleware(stubValidator{}),
		contextkeys.LoggerFromContext(context.Background()),
	)
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sampleProps() []domain.Property {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return []domain.Property{
		{ID: "p1", LandlordID: "l1", Title: "Cosy flat", Location: "Aarhus", Price: 8000, Bedrooms: 2, Size: 60, PropertyType: domain.PropertyTypeApartment, Available: true, CreatedAt: base},
		{ID: "p2", LandlordID: "l1", Title: "Big house", Location: "Odense", Price: 15000, Bedrooms: 4, Size: 140, PropertyType: domain.PropertyTypeHouse, Available: true, CreatedAt: base.Add(time.Hour)},
		{ID: "p3", LandlordID: "l2", Title: "Small room", Location: "Aarhus", Price: 4000, Bedrooms: 1, Size: 15, PropertyType: domain.PropertyTypeRoom, Available: true, CreatedAt: base.Add(2 * time.Hour)},
	}
}

func TestListListingsFiltersAndSorts(t *testing.T) {
	h := newTestRouter(&fakeListingClient{props: sampleProps()}, &fakeConversationClient{})

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/listings?location=aarhus&sort=price_asc", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp ListingsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 || resp.Data[0].ID != "p3" || resp.Data[1].ID != "p1" {
		t.Fatalf("unexpected result %+v", resp)
	}
	if resp.Sort != "price_asc" {
		t.Errorf("sort = %q", resp.Sort)
	}
	if resp.Data[0].FirstImage != domain.DefaultPlaceholderImage {
		t.Errorf("first_image = %q", resp.Data[0].FirstImage)
	}
}

func TestListListingsRejectsBadQuery(t *testing.T) {
	h := newTestRouter(&fakeListingClient{}, &fakeConversationClient{})

	for _, q := range []string{
		"min_price=cheap", "bedrooms=2.5", "sort=random", "available_by=tomorrow",
		"min_price=NaN", "max_price=Inf", "min_size=-Infinity",
		"property_type=castle", "mine=maybe",
	} {
		rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/listings?"+q, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", q, rec.Code)
		}
	}
}

func TestListListingsMine(t *testing.T) {
	h := newTestRouter(&fakeListingClient{props: sampleProps()}, &fakeConversationClient{})

	if rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/listings?mine=true", nil)); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous mine: status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/listings?mine=true&sort=price_asc", nil)
	req.Header.Set("Authorization", "Bearer user-l1")
	rec := do(t, h, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp ListingsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 || resp.Data[0].ID != "p1" || resp.Data[1].ID != "p2" {
		t.Fatalf("unexpected result %+v", resp)
	}

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/listings?landlord_id=l2", nil))
	resp = ListingsResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Data[0].ID != "p3" {
		t.Fatalf("landlord_id: %+v", resp)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/listings?mine=true&landlord_id=l2", nil)
	req.Header.Set("Authorization", "Bearer user-l1")
	if rec := do(t, h, req); rec.Code != http.StatusBadRequest {
		t.Fatalf("conflicting landlord: status = %d", rec.Code)
	}
}

func TestListListingsReportsFetchError(t *testing.T) {
	lc := &fakeListingClient{state: usecases_port.ListingState{Error: "transport failure: db down"}}
	h := newTestRouter(lc, &fakeConversationClient{})

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/listings", nil))
	var resp ListingsResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if rec.Code != http.StatusOK || resp.Error == "" || resp.Data == nil || len(resp.Data) != 0 {
		t.Fatalf("status=%d resp=%+v", rec.Code, resp)
	}
}

func TestGetListingNotFound(t *testing.T) {
	h := newTestRouter(&fakeListingClient{props: sampleProps()}, &fakeConversationClient{})

	if rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/listings/p2", nil)); rec.Code != http.StatusOK {
		t.Fatalf("existing listing: %d", rec.Code)
	}
	if rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/listings/nope", nil)); rec.Code != http.StatusNotFound {
		t.Fatalf("missing listing: %d", rec.Code)
	}
}

func TestFilterOptions(t *testing.T) {
	h := newTestRouter(&fakeListingClient{props: sampleProps()}, &fakeConversationClient{})

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/filters/options", nil))
	var resp FilterOptionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 3 || resp.Price.Min != 4000 || resp.Price.Max != 15000 || len(resp.Locations) != 2 {
		t.Fatalf("options = %+v", resp)
	}
}

const validListingJSON = `{
	"title": "Bright two-room flat",
	"description": "Close to the harbour, newly renovated kitchen.",
	"price": 9000,
	"location": "Aarhus C",
	"property_type": "apartment",
	"size": 65,
	"bedrooms": 2,
	"bathrooms": 1,
	"deposit": 27000,
	"amenities": ["balcony"],
	"available_from": "2030-05-01"
}`

func TestCreateListingRequiresAuth(t *testing.T) {
	h := newTestRouter(&fakeListingClient{}, &fakeConversationClient{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/listings", strings.NewReader(validListingJSON))
	if rec := do(t, h, req); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/listings", strings.NewReader(validListingJSON))
	req.Header.Set("Authorization", "Bearer forged")
	if rec := do(t, h, req); rec.Code != http.StatusUnauthorized {
		t.Fatalf("forged token status = %d", rec.Code)
	}
}

func TestCreateListingJSON(t *testing.T) {
	lc := &fakeListingClient{}
	h := newTestRouter(lc, &fakeConversationClient{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/listings", strings.NewReader(validListingJSON))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer user-l1")
	rec := do(t, h, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	if lc.callerSeen != "l1" {
		t.Errorf("caller = %q", lc.callerSeen)
	}
	want := time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC)
	if !lc.gotForm.AvailableFrom.Equal(want) || lc.gotForm.PropertyType != domain.PropertyTypeApartment {
		t.Errorf("form = %+v", lc.gotForm)
	}

	var resp CreateListingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ImagesUploaded != 1 || len(resp.FailedSteps) != 1 || resp.FailedSteps[0].Target != "b.jpg" {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Listing.TotalMoveInCost != 36000 {
		t.Errorf("total_move_in_cost = %v", resp.Listing.TotalMoveInCost)
	}
}

func TestCreateListingMultipart(t *testing.T) {
	lc := &fakeListingClient{}
	h := newTestRouter(lc, &fakeConversationClient{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("listing", validListingJSON)
	for _, name := range []string{"a.jpg", "b.jpg"} {
		fw, err := mw.CreateFormFile("images", name)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write([]byte("data-" + name))
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/listings", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer user-l1")
	rec := do(t, h, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if len(lc.gotImages) != 2 || lc.gotImages[0] != "a.jpg:data-a.jpg" {
		t.Fatalf("images = %v", lc.gotImages)
	}
}

func TestCreateListingRejectsSchemaViolations(t *testing.T) {
	h := newTestRouter(&fakeListingClient{}, &fakeConversationClient{})

	for name, payload := range map[string]string{
		"unknown field": `{"title":"Bright flat","owner":"me"}`,
		"wrong type":    `{"title":"Bright flat","price":"lots"}`,
		"not json":      `title=flat`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/listings", strings.NewReader(payload))
		req.Header.Set("Authorization", "Bearer user-l1")
		if rec := do(t, h, req); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", name, rec.Code)
		}
	}
}

func TestCreateListingMapsValidationErrors(t *testing.T) {
	lc := &fakeListingClient{createErr: domain.ValidationErrors{{Field: "title", Message: "must be at least 5 characters"}}}
	h := newTestRouter(lc, &fakeConversationClient{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/listings", strings.NewReader(validListingJSON))
	req.Header.Set("Authorization", "Bearer user-l1")
	rec := do(t, h, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp ErrorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Details) != 1 || resp.Details[0].Field != "title" {
		t.Fatalf("details = %+v", resp.Details)
	}
}

func TestUpdateListing(t *testing.T) {
	lc := &fakeListingClient{props: sampleProps()}
	h := newTestRouter(lc, &fakeConversationClient{})

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/listings/p1", strings.NewReader(`{"price": 9500, "available_from": "2031-01-01"}`))
	req.Header.Set("Authorization", "Bearer user-l1")
	rec := do(t, h, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if lc.gotPatch.Price == nil || *lc.gotPatch.Price != 9500 || lc.gotPatch.AvailableFrom == nil {
		t.Fatalf("patch = %+v", lc.gotPatch)
	}

	req = httptest.NewRequest(http.MethodPatch, "/api/v1/listings/p1", strings.NewReader(`{"landlord_id": "me"}`))
	req.Header.Set("Authorization", "Bearer user-l1")
	if rec := do(t, h, req); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field status = %d", rec.Code)
	}
}

func TestDeleteListingReportsFailedCleanup(t *testing.T) {
	lc := &fakeListingClient{deleteRep: domain.StepReport{Results: []domain.StepResult{
		{Step: domain.StepRemoveImage, Target: "a", Err: errors.New("gone")},
		{Step: domain.StepRemoveImage, Target: "b"},
		{Step: domain.StepDeleteListing, Policy: domain.AbortOnFailure},
	}}}
	h := newTestRouter(lc, &fakeConversationClient{})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/listings/p1", nil)
	req.Header.Set("Authorization", "Bearer user-l1")
	rec := do(t, h, req)
	var resp DeleteListingResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if rec.Code != http.StatusOK || !resp.Deleted || resp.ImagesRemoved != 1 || len(resp.FailedSteps) != 1 {
		t.Fatalf("status=%d resp=%+v", rec.Code, resp)
	}
}

func TestConversationsAnonymousAndAuthenticated(t *testing.T) {
	cc := &fakeConversationClient{convs: []domain.Conversation{{
		ID: "c1", PropertyID: "p1", LandlordID: "l1", TenantID: "t1",
		Messages: []domain.Message{
			{ID: "m1", SenderID: "t1", Content: "Hi"},
			{ID: "m2", SenderID: "l1", Content: "Hello", Read: true},
			{ID: "m3", SenderID: "t1", Content: "Still free?"},
		},
	}}}
	h := newTestRouter(&fakeListingClient{}, cc)

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/conversations", nil))
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("anonymous: %d %s", rec.Code, rec.Body)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations", nil)
	req.Header.Set("Authorization", "Bearer user-l1")
	rec = do(t, h, req)
	var resp []ConversationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp) != 1 || resp[0].Unread != 2 || len(resp[0].Messages) != 3 {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestSendMessageAndMarkRead(t *testing.T) {
	cc := &fakeConversationClient{}
	h := newTestRouter(&fakeListingClient{}, cc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(`{"content":"Hi","property_id":"p1","receiver_id":"l1"}`))
	req.Header.Set("Authorization", "Bearer user-t1")
	rec := do(t, h, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("send status = %d", rec.Code)
	}
	var msg MessageResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &msg)
	if msg.SenderID != "t1" || msg.ReceiverID != "l1" {
		t.Fatalf("msg = %+v", msg)
	}

	cc.sendErr = domain.ErrForbidden
	req = httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(`{"content":"Hi","property_id":"p1","receiver_id":"x"}`))
	req.Header.Set("Authorization", "Bearer user-t1")
	if rec := do(t, h, req); rec.Code != http.StatusForbidden {
		t.Fatalf("forbidden status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/conversations/c1/read", nil)
	req.Header.Set("Authorization", "Bearer user-l1")
	if rec := do(t, h, req); rec.Code != http.StatusNoContent {
		t.Fatalf("read status = %d", rec.Code)
	}
	if len(cc.readIDs) != 1 || cc.readIDs[0] != "c1" {
		t.Fatalf("read ids = %v", cc.readIDs)
	}
}

func TestTraceIDHeader(t *testing.T) {
	h := newTestRouter(&fakeListingClient{}, &fakeConversationClient{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Trace-ID", "0f8fad5b-d9cb-469f-a165-70867728950e")
	rec := do(t, h, req)
	if got := rec.Header().Get("X-Trace-ID"); got != "0f8fad5b-d9cb-469f-a165-70867728950e" {
		t.Fatalf("X-Trace-ID = %q", got)
	}
}

func TestOptionalAuthRejectsBadToken(t *testing.T) {
	h := newTestRouter(&fakeListingClient{}, &fakeConversationClient{})

	for _, header := range []string{"Bearer forged", "Basic abc", "Bearer "} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations", nil)
		req.Header.Set("Authorization", header)
		if rec := do(t, h, req); rec.Code != http.StatusUnauthorized {
			t.Errorf("%q: status = %d", header, rec.Code)
		}
	}
}

func TestParseSearchQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?q=balcony&min_price=1000&max_price=9000&bedrooms=2&min_size=40&property_type=house&available_by=2030-01-01&sort=newest", nil)

	f, order, err := parseSearchQuery(req)
	if err != nil {
		t.Fatal(err)
	}
	if f.Query != "balcony" || *f.MinPrice != 1000 || *f.MaxPrice != 9000 || *f.Bedrooms != 2 || *f.MinSize != 40 || f.PropertyType != "house" {
		t.Fatalf("filters = %+v", f)
	}
	if !f.AvailableBy.Equal(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("available_by = %v", f.AvailableBy)
	}
	if order != domain.SortDateDesc {
		t.Errorf("order = %q", order)
	}

	f, order, err = parseSearchQuery(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil || f.MinPrice != nil || f.AvailableBy != nil || order != domain.DefaultSortOrder {
		t.Fatalf("empty query: %+v %q %v", f, order, err)
	}

	f, _, err = parseSearchQuery(httptest.NewRequest(http.MethodGet, "/?property_type=HOUSE", nil))
	if err != nil || f.PropertyType != string(domain.PropertyTypeHouse) {
		t.Fatalf("mixed-case type: %+v %v", f, err)
	}
	f, _, err = parseSearchQuery(httptest.NewRequest(http.MethodGet, "/?property_type=All", nil))
	if err != nil || f.PropertyType != "" {
		t.Fatalf("all: %+v %v", f, err)
	}
	if _, _, err := parseSearchQuery(httptest.NewRequest(http.MethodGet, "/?max_price=NaN", nil)); err == nil {
		t.Fatal("NaN accepted")
	}
}
