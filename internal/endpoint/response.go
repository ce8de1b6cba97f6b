package endpoint

import (
	"encoding/xml"
	"regexp"
	"strings"
)

var incidentNumber = regexp.MustCompile(`Incident_Number>([^<]*)<`)

// ExtractTicketID returns the content of the first Incident_Number element in body.
// An empty or blank element counts as no ticket.
func ExtractTicketID(body string) (string, error) {
	m := incidentNumber.FindStringSubmatch(body)
	if m == nil {
		return "", ErrTicketNotFound
	}
	id := strings.TrimSpace(m[1])
	if id == "" {
		return "", ErrTicketNotFound
	}
	return id, nil
}

type soapEnvelope struct {
	Body struct {
		Fault *struct {
			Code   string `xml:"faultcode"`
			String string `xml:"faultstring"`
		} `xml:"Fault"`
	} `xml:"Body"`
}

// parseFault returns the faultstring of a SOAP fault body, or "" if body is not one.
func parseFault(body []byte) string {
	var env soapEnvelope
	if err := xml.Unmarshal(body, &env); err != nil || env.Body.Fault == nil {
		return ""
	}
	return strings.TrimSpace(env.Body.Fault.String)
}
