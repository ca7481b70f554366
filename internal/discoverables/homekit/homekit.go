// Package homekit discovers HomeKit accessories over mDNS.
package homekit

import (
	"strconv"

	"github.com/muurk/netdisco/internal/discoverable"
	"github.com/muurk/netdisco/internal/mdns"
)

const (
	Name        = "homekit"
	ServiceType = "_hap._tcp"
)

// categories maps the "ci" TXT value to an accessory category
var categories = map[int]string{
	1:  "other",
	2:  "bridge",
	3:  "fan",
	4:  "garage_door_opener",
	5:  "lightbulb",
	6:  "door_lock",
	7:  "outlet",
	8:  "switch",
	9:  "thermostat",
	10: "sensor",
	11: "security_system",
	12: "door",
	13: "window",
	14: "window_covering",
	15: "programmable_switch",
	17: "ip_camera",
	18: "video_doorbell",
	19: "air_purifier",
	20: "heater",
	21: "air_conditioner",
	22: "humidifier",
	23: "dehumidifier",
	28: "sprinkler",
	29: "faucet",
	30: "shower_system",
	31: "television",
	32: "remote",
}

func init() {
	discoverable.Register(discoverable.Registration{
		Name:         Name,
		MDNSServices: []string{ServiceType},
		Description:  "HomeKit accessories and bridges",
		Factory:      New,
	})
}

// New creates the homekit checker
func New(src discoverable.Sources) (discoverable.Checker, error) {
	c := discoverable.NewMDNSChecker(src, ServiceType)
	c.Describe = describe
	return c, nil
}

func describe(e mdns.Entry) discoverable.Info {
	info := discoverable.MDNSInfo(e)
	info.Properties = map[string]string{}
	if v := e.Property("md"); v != "" {
		info.Properties["model_name"] = v
	}
	if v := e.Property("id"); v != "" {
		info.Properties["device_id"] = v
	}
	if ci, err := strconv.Atoi(e.Property("ci")); err == nil {
		if cat, ok := categories[ci]; ok {
			info.Properties["category"] = cat
		}
	}
	// sf=1 means the accessory has not been paired yet
	if e.Property("sf") == "1" {
		info.Properties["paired"] = "false"
	} else if e.Property("sf") == "0" {
		info.Properties["paired"] = "true"
	}
	return info
}
