package geoip

import (
	"log"
	"net"

	"github.com/oschwald/maxminddb-golang"
)

// Location is the resolved geography for a streaming client address.
type Location struct {
	IP      string  `json:"ip"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	City    string  `json:"city"`
	Country string  `json:"country"`
}

// Resolver looks up client addresses in a MaxMind database. A Resolver with
// no database loaded resolves everything to nil.
type Resolver struct {
	db *maxminddb.Reader
}

type mmdbRecord struct {
	City struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"city"`
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
	Location struct {
		Latitude  float64 `maxminddb:"latitude"`
		Longitude float64 `maxminddb:"longitude"`
	} `maxminddb:"location"`
}

func NewResolver(dbPath string) *Resolver {
	if dbPath == "" {
		return &Resolver{}
	}
	db, err := maxminddb.Open(dbPath)
	if err != nil {
		log.Printf("geoip: failed to open %s: %v", dbPath, err)
		return &Resolver{}
	}
	return &Resolver{db: db}
}

func (r *Resolver) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Lookup resolves a public IP. Private, loopback and unspecified addresses
// return nil.
func (r *Resolver) Lookup(ip net.IP) *Location {
	if ip == nil || r.db == nil || ip.IsPrivate() || ip.IsLoopback() || ip.IsUnspecified() {
		return nil
	}
	var record mmdbRecord
	if err := r.db.Lookup(ip, &record); err != nil {
		return nil
	}
	return &Location{
		IP:      ip.String(),
		Lat:     record.Location.Latitude,
		Lng:     record.Location.Longitude,
		City:    record.City.Names["en"],
		Country: record.Country.ISOCode,
	}
}

// LookupAddr parses host:port or bare-host remote address strings before
// resolving.
func (r *Resolver) LookupAddr(addr string) *Location {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	return r.Lookup(net.ParseIP(host))
}
