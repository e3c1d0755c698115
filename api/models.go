package api

import "strings"

// Technology is a VPN technology offered by a server (OpenVPN, IKEv2, ...).
type Technology struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Identifier string `json:"identifier"`
}

// Technology identifiers the controller cares about.
const (
	TechOpenVPNUDP = "openvpn_udp"
	TechOpenVPNTCP = "openvpn_tcp"
)

// City is a city within a country.
type City struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	DNSName   string  `json:"dns_name,omitempty"`
	HubScore  int     `json:"hub_score,omitempty"`
}

// Country is a country with VPN servers. The catalog nests a city record
// inside country entries attached to server locations.
type Country struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
	City *City  `json:"city,omitempty"`
}

// ServerLocation is the full location record attached to a server.
type ServerLocation struct {
	ID        int     `json:"id"`
	Country   Country `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ServerIP is a server IP address entry.
type ServerIP struct {
	ID      int    `json:"id"`
	IP      string `json:"ip"`
	Version int    `json:"version"`
}

// Server is a NordVPN server as reported by the catalog. Load is a
// percentage in 0..100. Hostname uniquely identifies a server.
type Server struct {
	ID           int              `json:"id"`
	Name         string           `json:"name"`
	Station      string           `json:"station"`
	Hostname     string           `json:"hostname"`
	Load         int              `json:"load"`
	Status       string           `json:"status"`
	Locations    []ServerLocation `json:"locations"`
	Technologies []Technology     `json:"technologies"`
	IPs          []ServerIP       `json:"ips,omitempty"`
}

// Country returns the server's country, or nil when the catalog reported
// no location.
func (s *Server) Country() *Country {
	if len(s.Locations) == 0 {
		return nil
	}
	return &s.Locations[0].Country
}

// CityInfo returns the server's city, or nil when unknown.
func (s *Server) CityInfo() *City {
	if c := s.Country(); c != nil {
		return c.City
	}
	return nil
}

// CityName returns the server's city name, or "" when unknown.
func (s *Server) CityName() string {
	if c := s.CityInfo(); c != nil {
		return c.Name
	}
	return ""
}

// CountryCode returns the upper-case two-letter country code, or "".
func (s *Server) CountryCode() string {
	if c := s.Country(); c != nil {
		return strings.ToUpper(c.Code)
	}
	return ""
}

// CountryName returns the server's country name, or "".
func (s *Server) CountryName() string {
	if c := s.Country(); c != nil {
		return c.Name
	}
	return ""
}

// SupportsOpenVPNUDP reports whether the server offers OpenVPN over UDP.
func (s *Server) SupportsOpenVPNUDP() bool {
	return s.supports(TechOpenVPNUDP)
}

// SupportsOpenVPNTCP reports whether the server offers OpenVPN over TCP.
func (s *Server) SupportsOpenVPNTCP() bool {
	return s.supports(TechOpenVPNTCP)
}

func (s *Server) supports(identifier string) bool {
	for _, t := range s.Technologies {
		if t.Identifier == identifier {
			return true
		}
	}
	return false
}
