package aggregator

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "vinreport-workers/internal/common/errors"
	"vinreport-workers/internal/common/logger"
	"vinreport-workers/internal/gateway"
	"vinreport-workers/internal/models"
)

type MockCaller struct {
	mock.Mock
}

func (m *MockCaller) Call(ctx context.Context, ep gateway.Endpoint, body interface{}) (*models.Envelope, error) {
	args := m.Called(ctx, ep, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Envelope), args.Error(1)
}

func dataSet(name string) interface{} {
	return mock.MatchedBy(func(body interface{}) bool {
		req, ok := body.(models.DataRequest)
		return ok && req.DataSet == name
	})
}

func okEnvelope(result string) *models.Envelope {
	return &models.Envelope{Result: json.RawMessage(result)}
}

func createTestParams() models.Params {
	return models.NewParams(map[string]string{
		"token": "tok",
		"sts":   "77УМ123456",
		"vin":   "XTA210990Y2765499",
	})
}

func createTestAggregator(t *testing.T, caller gateway.Caller) *Aggregator {
	return New(caller, DefaultOptions("http://gateway.local/getData"), logger.NewTestLogger(t))
}

func TestFetchVehicleDocument_Merge(t *testing.T) {
	caller := new(MockCaller)
	caller.On("Call", mock.Anything, mock.Anything, dataSet(HistoryDataSet)).
		Return(okEnvelope(`{"Model":"Lada","CommonInfo":{"vin":"FROM-REMOTE","extra":1}}`), nil)
	caller.On("Call", mock.Anything, mock.Anything, dataSet(OffenceDataSet)).
		Return(okEnvelope(`[{"count":2,"total":"1500"}]`), nil)

	doc, err := createTestAggregator(t, caller).FetchVehicleDocument(context.Background(), createTestParams())
	require.NoError(t, err)

	want := map[string]interface{}{
		"Model": "Lada",
		"fines": map[string]interface{}{"count": json.Number("2"), "total": "1500"},
		"CommonInfo": map[string]interface{}{
			"sts": "77УМ123456",
			"vin": "XTA210990Y2765499",
			"grz": nil,
		},
	}
	if diff := cmp.Diff(want, doc.Root); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, doc.HistoryFound)
	caller.AssertExpectations(t)
}

func TestFetchVehicleDocument_EmptyOffenceHasNoFines(t *testing.T) {
	for _, offence := range []string{`[{}]`, `[]`, `null`, ``} {
		t.Run("offence="+offence, func(t *testing.T) {
			caller := new(MockCaller)
			caller.On("Call", mock.Anything, mock.Anything, dataSet(HistoryDataSet)).
				Return(okEnvelope(`{"Model":"Lada"}`), nil)
			caller.On("Call", mock.Anything, mock.Anything, dataSet(OffenceDataSet)).
				Return(okEnvelope(offence), nil)

			doc, err := createTestAggregator(t, caller).FetchVehicleDocument(context.Background(), createTestParams())
			require.NoError(t, err)

			_, hasFines := doc.Fines()
			assert.False(t, hasFines)
		})
	}
}

func TestFetchVehicleDocument_EmptyHistoryIsNoData(t *testing.T) {
	caller := new(MockCaller)
	caller.On("Call", mock.Anything, mock.Anything, dataSet(HistoryDataSet)).
		Return(okEnvelope(`{}`), nil)
	caller.On("Call", mock.Anything, mock.Anything, dataSet(OffenceDataSet)).
		Return(okEnvelope(`[]`), nil)

	doc, err := createTestAggregator(t, caller).FetchVehicleDocument(context.Background(), createTestParams())
	require.NoError(t, err)

	assert.False(t, doc.HistoryFound)
	assert.Equal(t, "77УМ123456", doc.CommonInfo()["sts"])
	assert.Len(t, doc.Root, 1)
}

func TestFetchVehicleDocument_RemoteErrors(t *testing.T) {
	historyFail := &models.Envelope{ErrorCode: 10, ErrorMessage: "history down"}
	offenceFail := &models.Envelope{ErrorCode: 20, ErrorMessage: "offence down"}

	tests := []struct {
		name     string
		history  *models.Envelope
		offence  *models.Envelope
		wantCode int
	}{
		{"history fails", historyFail, okEnvelope(`[]`), 10},
		{"offence fails", okEnvelope(`{"a":1}`), offenceFail, 20},
		{"both fail reports history", historyFail, offenceFail, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller := new(MockCaller)
			caller.On("Call", mock.Anything, mock.Anything, dataSet(HistoryDataSet)).Return(tt.history, nil)
			caller.On("Call", mock.Anything, mock.Anything, dataSet(OffenceDataSet)).Return(tt.offence, nil)

			_, err := createTestAggregator(t, caller).FetchVehicleDocument(context.Background(), createTestParams())

			re, ok := apperrors.AsRemote(err)
			require.True(t, ok, "expected remote error, got %v", err)
			assert.Equal(t, tt.wantCode, re.Code)
		})
	}
}

func TestFetchVehicleDocument_SlowHistoryErrorWins(t *testing.T) {
	caller := new(MockCaller)
	caller.On("Call", mock.Anything, mock.Anything, dataSet(HistoryDataSet)).
		After(30*time.Millisecond).
		Return(&models.Envelope{ErrorCode: 10, ErrorMessage: "history down"}, nil)
	caller.On("Call", mock.Anything, mock.Anything, dataSet(OffenceDataSet)).
		Return(nil, &apperrors.TransportError{Status: 503, Body: "busy"})

	_, err := createTestAggregator(t, caller).FetchVehicleDocument(context.Background(), createTestParams())

	re, ok := apperrors.AsRemote(err)
	require.True(t, ok, "expected history remote error, got %v", err)
	assert.Equal(t, 10, re.Code)
	caller.AssertNumberOfCalls(t, "Call", 2)
}

func TestFetchVehicleDocument_TransportError(t *testing.T) {
	caller := new(MockCaller)
	caller.On("Call", mock.Anything, mock.Anything, dataSet(HistoryDataSet)).
		Return(nil, &apperrors.TransportError{Status: 502, Body: "bad gateway"})
	caller.On("Call", mock.Anything, mock.Anything, dataSet(OffenceDataSet)).
		Return(okEnvelope(`[]`), nil)

	_, err := createTestAggregator(t, caller).FetchVehicleDocument(context.Background(), createTestParams())
	te, ok := apperrors.AsTransport(err)
	require.True(t, ok)
	assert.Equal(t, 502, te.Status)
}

func TestFetchVehicleDocument_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		history string
		offence string
	}{
		{"history is a string", `"oops"`, `[]`},
		{"offence is an object", `{"a":1}`, `{"count":1}`},
		{"offence element is a number", `{"a":1}`, `[5]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller := new(MockCaller)
			caller.On("Call", mock.Anything, mock.Anything, dataSet(HistoryDataSet)).Return(okEnvelope(tt.history), nil)
			caller.On("Call", mock.Anything, mock.Anything, dataSet(OffenceDataSet)).Return(okEnvelope(tt.offence), nil)

			_, err := createTestAggregator(t, caller).FetchVehicleDocument(context.Background(), createTestParams())
			assert.ErrorIs(t, err, ErrMalformedResult)
		})
	}
}

func TestFetchVehicleDocument_TermsSent(t *testing.T) {
	caller := new(MockCaller)
	caller.On("Call", mock.Anything, mock.Anything, mock.MatchedBy(func(body interface{}) bool {
		req := body.(models.DataRequest)
		if req.DataSet != HistoryDataSet || len(req.Terms) != 3 {
			return false
		}
		return req.Terms[0].Name == "sts" && req.Terms[1].Name == "vin" && req.Terms[2].Name == "grz" &&
			req.Terms[2].Value == nil && *req.Token == "tok"
	})).Return(okEnvelope(`{}`), nil)
	caller.On("Call", mock.Anything, mock.Anything, mock.MatchedBy(func(body interface{}) bool {
		req := body.(models.DataRequest)
		return req.DataSet == OffenceDataSet && len(req.Terms) == 1 && req.Terms[0].Name == "sts"
	})).Return(okEnvelope(`[]`), nil)

	_, err := createTestAggregator(t, caller).FetchVehicleDocument(context.Background(), createTestParams())
	require.NoError(t, err)
	caller.AssertExpectations(t)
}

func TestMerge_CommonInfoOverridesRemote(t *testing.T) {
	history := map[string]interface{}{
		"CommonInfo": map[string]interface{}{"sts": "REMOTE", "vin": "REMOTE", "grz": "REMOTE"},
	}
	params := models.NewParams(map[string]string{"sts": "S", "grz": "G"})

	doc := Merge(history, nil, params)

	assert.Equal(t, map[string]interface{}{"sts": "S", "vin": nil, "grz": "G"}, doc.CommonInfo())
	_, hasFines := doc.Fines()
	assert.False(t, hasFines)
}
