// Package attributes provides the attribute configuration and templating
// engine for the synthetic ThingsBoard hierarchy.
//
// Entity attributes are declared in YAML definition documents rather than in
// code. Asset documents hold a default attribute set plus override blocks
// selected by the entity's context; device documents hold sections of value
// specifiers that are resolved (templated, drawn, picked) per device.
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────────────────┐
//	│                          Attributes Engine                               │
//	│                                                                          │
//	│  ┌──────────────────┐    ┌──────────────────┐    ┌──────────────────┐   │
//	│  │      Engine      │    │      Loader      │    │    Specifiers    │   │
//	│  │   (engine.go)    │───▶│   (loader.go)    │───▶│  (specifier.go)  │   │
//	│  │                  │    │                  │    │                  │   │
//	│  │ • Asset merge    │    │ • Env overlays   │    │ • Compile once   │   │
//	│  │ • Device resolve │    │ • Deep merge     │    │ • Ranges/choices │   │
//	│  │ • Seeded random  │    │ • Path cache     │    │ • Templates      │   │
//	│  └──────────────────┘    └──────────────────┘    └──────────────────┘   │
//	│                                   │                                      │
//	└───────────────────────────────────│──────────────────────────────────────┘
//	                                    ▼
//	                       ┌──────────────────────────┐
//	                       │  configs/attributes/     │
//	                       │    assets/<type>.yaml    │
//	                       │    devices/<type>.yaml   │
//	                       │    <env>/assets/...      │
//	                       │  configs/telemetry/      │
//	                       │    devices/<type>.yaml   │
//	                       └──────────────────────────┘
//
// # Documents
//
// Asset document:
//
//	default:
//	  site_type: industrial
//	  installation_date: auto
//	overrides:
//	  ISO_5:
//	    cleanroom_class: ISO 5
//	    particle_limit: 3520
//
// Device document:
//
//	device_info:
//	  serial_number: "SN-{device_index}-{random}"
//	  firmware: ["2.1.0", "2.1.3"]
//	operating:
//	  speed_percent: {min: 40, max: 90}
//	  label: {prefix: FFU, format: "FFU-{device_index}"}
//
// A value is interpreted by shape: strings with braces are templates,
// sequences are choices, mappings with min and max are ranges, mappings with
// prefix and format are formatted fields, other mappings nest, everything
// else is a literal.
//
// # Usage
//
//	loader := attributes.NewLoader("configs/attributes", "configs/telemetry")
//	engine := attributes.NewEngine(loader, "dev")
//	engine.SetLogger(log)
//
//	attrs, err := engine.ResolveAssetAttributes("room", map[string]any{
//	    "classification": "ISO_5",
//	})
//
//	devAttrs, err := engine.ResolveDeviceAttributes("ebmpapst_ffu", 7, nil)
//	// devAttrs["serial_number"] == "SN-7-482913"
//
// # Thread Safety
//
// Loader and Engine are safe for concurrent use. Documents returned by the
// Loader are shared with its cache and must not be modified.
package attributes
