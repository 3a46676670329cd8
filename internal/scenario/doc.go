// Package scenario reads synthetic hierarchy scenarios and plans the
// ThingsBoard entities they describe.
//
// A scenario is a JSON document describing one site with buildings, floors,
// rooms, one gateway per room and a contiguous range of field devices per
// gateway:
//
//	{
//	  "scenarioName": "Cleanroom Fab",
//	  "site": {"name": "Fab Campus", "type": "Site"},
//	  "buildings": [{
//	    "name": "Fab 1", "type": "Cleanroom",
//	    "floors": [{"name": "F1-L1", "rooms": [{
//	      "name": "Bay A", "classification": "ISO_5",
//	      "gateways": [{"name": "GW-A", "devices": {"prefix": "DW", "start": 0, "count": 12}}]
//	    }]}]
//	  }],
//	  "totals": {"rooms": 1, "devices": 12}
//	}
//
// Validate checks the hierarchy rules; Planner.Plan resolves attributes for
// every entity through a Resolver (normally *attributes.Engine) and returns
// a Plan ordered parents-first.
package scenario
