package endpoint

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const createAction = "urn:HPD_IncidentInterface_Create_WS/HelpDesk_Submit_Service"

func TestNew_InvalidURL(t *testing.T) {
	for _, raw := range []string{"://bad", "ftp://remedy.example/ws", "relative/path", "http://"} {
		_, err := New(raw, createAction)
		var invalid *InvalidURLError
		require.True(t, errors.As(err, &invalid), raw)
		assert.Equal(t, raw, invalid.URL)
	}
}

func TestPost_SendsSOAPRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "text/xml", r.Header.Get("Content-Type"))
		assert.Equal(t, `"`+createAction+`"`, r.Header.Get("SOAPAction"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "<payload/>", string(body))
		w.Write([]byte("<ns0:Incident_Number>INC000123</ns0:Incident_Number>"))
	}))
	defer srv.Close()

	c, err := New(srv.URL, createAction)
	require.NoError(t, err)

	body, err := c.Post(context.Background(), "<payload/>")
	require.NoError(t, err)
	assert.Equal(t, "<ns0:Incident_Number>INC000123</ns0:Incident_Number>", body)

	id, err := ExtractTicketID(body)
	require.NoError(t, err)
	assert.Equal(t, "INC000123", id)
}

func TestPost_NotFoundCarriesSOAPContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c, err := New(srv.URL, createAction)
	require.NoError(t, err)

	_, err = c.Post(context.Background(), "<payload/>")
	var epErr *Error
	require.True(t, errors.As(err, &epErr))
	assert.Equal(t, KindStatus, epErr.Kind)
	assert.Equal(t, http.StatusNotFound, epErr.StatusCode)
	assert.Equal(t, "POST", epErr.Method)
	assert.Equal(t, srv.URL, epErr.URL)
	assert.Equal(t, createAction, epErr.SOAPAction)
	assert.Equal(t, "<payload/>", epErr.SOAPPayload)
	assert.True(t, epErr.HasSOAPContext())
	assert.Contains(t, epErr.Error(), "request response error: 404 (Not Found)")
}

func TestPost_FaultStringAppended(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/">
<soapenv:Body><soapenv:Fault><faultcode>soapenv:Server</faultcode>
<faultstring>ERROR (302): Entry does not exist in database</faultstring></soapenv:Fault></soapenv:Body>
</soapenv:Envelope>`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, createAction)
	require.NoError(t, err)

	_, err = c.Post(context.Background(), "<payload/>")
	var epErr *Error
	require.True(t, errors.As(err, &epErr))
	assert.Equal(t, http.StatusInternalServerError, epErr.StatusCode)
	assert.Contains(t, epErr.Message, "ERROR (302): Entry does not exist in database")
}

func TestPost_TransportFailureHasNoSOAPContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := New(url, createAction)
	require.NoError(t, err)

	_, err = c.Post(context.Background(), "<payload/>")
	var epErr *Error
	require.True(t, errors.As(err, &epErr))
	assert.Equal(t, KindTransport, epErr.Kind)
	assert.Equal(t, "POST", epErr.Method)
	assert.Equal(t, url, epErr.URL)
	assert.Zero(t, epErr.StatusCode)
	assert.False(t, epErr.HasSOAPContext())
	assert.NotNil(t, errors.Unwrap(epErr))
}

func TestPost_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c, err := New(srv.URL, createAction, WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	_, err = c.Post(context.Background(), "<payload/>")
	var epErr *Error
	require.True(t, errors.As(err, &epErr))
	assert.Equal(t, KindTransport, epErr.Kind)
}

func TestPost_InsecureSkipVerify(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	strict, err := New(srv.URL, createAction)
	require.NoError(t, err)
	_, err = strict.Post(context.Background(), "<payload/>")
	require.Error(t, err, "self-signed certificate must be rejected by default")

	relaxed, err := New(srv.URL, createAction, WithInsecureSkipVerify(true))
	require.NoError(t, err)
	body, err := relaxed.Post(context.Background(), "<payload/>")
	require.NoError(t, err)
	assert.Equal(t, "ok", body)
}

func TestExtractTicketID_Missing(t *testing.T) {
	_, err := ExtractTicketID("<ns0:Status>ok</ns0:Status>")
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestExtractTicketID_FirstMatch(t *testing.T) {
	id, err := ExtractTicketID("...<Incident_Number>INC000123<...<Incident_Number>INC000999<")
	require.NoError(t, err)
	assert.Equal(t, "INC000123", id)
}

func TestExtractTicketID_BlankElement(t *testing.T) {
	for _, body := range []string{
		"<r><Incident_Number></Incident_Number></r>",
		"<r><ns0:Incident_Number>  \n\t</ns0:Incident_Number></r>",
	} {
		_, err := ExtractTicketID(body)
		assert.ErrorIs(t, err, ErrTicketNotFound, body)
	}
}

func TestExtractTicketID_TrimsWhitespace(t *testing.T) {
	id, err := ExtractTicketID("<Incident_Number>\n  INC000123\n</Incident_Number>")
	require.NoError(t, err)
	assert.Equal(t, "INC000123", id)
}

func TestPost_SOAPActionSentVerbatim(t *testing.T) {
	const action = `urn:Créer\Ticket`
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("SOAPAction")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c, err := New(srv.URL, action)
	require.NoError(t, err)
	_, err = c.Post(context.Background(), "<payload/>")
	require.NoError(t, err)
	assert.Equal(t, `"`+action+`"`, got)
}
