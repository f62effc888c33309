package mirrortest

// SeedHome fills b with a small home:
//
//	Living room: Living switch (old format behavior, buttons b-1..b-4), Lamp one, Lamp two
//	Office:      Office dimmer (new format behavior, buttons ob-1..ob-4), Desk lamp
//	lounge zone: Lamp one, Lamp two, Desk lamp
//
// Scenes Read, Relax and Nightlight belong to the living room, Concentrate to
// the office and CL01 to the lounge zone.
func SeedHome(b *Bridge) {
	for _, doc := range homeDocs {
		b.Add(doc)
	}
}

var homeDocs = []string{
	`{"id":"r-living","type":"room","metadata":{"name":"Living room","archetype":"living_room"},
	  "children":[{"rid":"d-switch","rtype":"device"},{"rid":"d-lamp1","rtype":"device"},{"rid":"d-lamp2","rtype":"device"}],
	  "services":[{"rid":"g-living","rtype":"grouped_light"}]}`,
	`{"id":"r-office","type":"room","metadata":{"name":"Office","archetype":"office"},
	  "children":[{"rid":"d-office-switch","rtype":"device"},{"rid":"d-desk","rtype":"device"}]}`,
	`{"id":"z-lounge","type":"zone","metadata":{"name":"lounge","archetype":"lounge"},
	  "children":[{"rid":"l-lamp1","rtype":"light"},{"rid":"l-lamp2","rtype":"light"},{"rid":"l-desk","rtype":"light"}]}`,

	`{"id":"d-switch","type":"device","metadata":{"name":"Living switch","archetype":"unknown_archetype"},
	  "services":[{"rid":"b-1","rtype":"button"},{"rid":"b-2","rtype":"button"},{"rid":"b-3","rtype":"button"},{"rid":"b-4","rtype":"button"},{"rid":"p-switch","rtype":"device_power"}]}`,
	`{"id":"d-lamp1","type":"device","metadata":{"name":"Lamp one","archetype":"classic_bulb"},"services":[{"rid":"l-lamp1","rtype":"light"}]}`,
	`{"id":"d-lamp2","type":"device","metadata":{"name":"Lamp two","archetype":"classic_bulb"},"services":[{"rid":"l-lamp2","rtype":"light"}]}`,
	`{"id":"d-office-switch","type":"device","metadata":{"name":"Office dimmer","archetype":"unknown_archetype"},
	  "services":[{"rid":"ob-1","rtype":"button"},{"rid":"ob-2","rtype":"button"},{"rid":"ob-3","rtype":"button"},{"rid":"ob-4","rtype":"button"},{"rid":"p-office","rtype":"device_power"}]}`,
	`{"id":"d-desk","type":"device","metadata":{"name":"Desk lamp","archetype":"desk_lamp"},"services":[{"rid":"l-desk","rtype":"light"}]}`,

	`{"id":"l-lamp1","type":"light","owner":{"rid":"d-lamp1","rtype":"device"},"metadata":{"name":"Lamp one","archetype":"classic_bulb"},"on":{"on":true},"dimming":{"brightness":80}}`,
	`{"id":"l-lamp2","type":"light","owner":{"rid":"d-lamp2","rtype":"device"},"metadata":{"name":"Lamp two","archetype":"classic_bulb"},"on":{"on":false},"dimming":{"brightness":10}}`,
	`{"id":"l-desk","type":"light","owner":{"rid":"d-desk","rtype":"device"},"metadata":{"name":"Desk lamp","archetype":"desk_lamp"},"on":{"on":true},"dimming":{"brightness":100}}`,

	`{"id":"b-1","type":"button","owner":{"rid":"d-switch","rtype":"device"},"metadata":{"control_id":1},"button":{"last_event":"short_release"}}`,
	`{"id":"b-2","type":"button","owner":{"rid":"d-switch","rtype":"device"},"metadata":{"control_id":2}}`,
	`{"id":"b-3","type":"button","owner":{"rid":"d-switch","rtype":"device"},"metadata":{"control_id":3}}`,
	`{"id":"b-4","type":"button","owner":{"rid":"d-switch","rtype":"device"},"metadata":{"control_id":4}}`,
	`{"id":"ob-1","type":"button","owner":{"rid":"d-office-switch","rtype":"device"},"metadata":{"control_id":1}}`,
	`{"id":"ob-2","type":"button","owner":{"rid":"d-office-switch","rtype":"device"},"metadata":{"control_id":2}}`,
	`{"id":"ob-3","type":"button","owner":{"rid":"d-office-switch","rtype":"device"},"metadata":{"control_id":3}}`,
	`{"id":"ob-4","type":"button","owner":{"rid":"d-office-switch","rtype":"device"},"metadata":{"control_id":4}}`,

	`{"id":"p-switch","type":"device_power","owner":{"rid":"d-switch","rtype":"device"},"power_state":{"battery_state":"normal","battery_level":90}}`,
	`{"id":"p-office","type":"device_power","owner":{"rid":"d-office-switch","rtype":"device"},"power_state":{"battery_state":"low","battery_level":12}}`,

	`{"id":"s-read","type":"scene","metadata":{"name":"Read"},"group":{"rid":"r-living","rtype":"room"},
	  "actions":[{"target":{"rid":"l-lamp1","rtype":"light"},"action":{"on":{"on":true},"dimming":{"brightness":100}}},
	             {"target":{"rid":"l-lamp2","rtype":"light"},"action":{"on":{"on":true},"dimming":{"brightness":100}}}],
	  "auto_dynamic":false,"speed":0.5,"status":{"active":"inactive"}}`,
	`{"id":"s-relax","type":"scene","metadata":{"name":"Relax"},"group":{"rid":"r-living","rtype":"room"},
	  "actions":[{"target":{"rid":"l-lamp1","rtype":"light"},"action":{"on":{"on":true},"dimming":{"brightness":40},"color_temperature":{"mirek":447}}}],
	  "auto_dynamic":false,"speed":0.7,"status":{"active":"static"}}`,
	`{"id":"s-night","type":"scene","metadata":{"name":"Nightlight"},"group":{"rid":"r-living","rtype":"room"},
	  "actions":[{"target":{"rid":"l-lamp2","rtype":"light"},"action":{"on":{"on":true},"dimming":{"brightness":1}}}],
	  "auto_dynamic":false,"speed":0.6}`,
	`{"id":"s-office","type":"scene","metadata":{"name":"Concentrate"},"group":{"rid":"r-office","rtype":"room"},
	  "actions":[{"target":{"rid":"l-desk","rtype":"light"},"action":{"on":{"on":true},"dimming":{"brightness":100}}}],
	  "auto_dynamic":false,"speed":0.6}`,
	`{"id":"s-cl01","type":"scene","metadata":{"name":"CL01"},"group":{"rid":"z-lounge","rtype":"zone"},
	  "actions":[{"target":{"rid":"l-lamp1","rtype":"light"},"action":{"on":{"on":true}}},
	             {"target":{"rid":"l-lamp2","rtype":"light"},"action":{"on":{"on":true}}},
	             {"target":{"rid":"l-desk","rtype":"light"},"action":{"on":{"on":true}}}],
	  "auto_dynamic":true,"speed":0.6}`,

	`{"id":"bi-living","type":"behavior_instance","script_id":"67d9395b-4403-42cc-b5f0-740b699d67c6","enabled":true,
	  "metadata":{"name":"Living switch"},"status":"running",
	  "configuration":{
	    "device":{"rid":"d-switch","rtype":"device"},
	    "button1":{"on_short_release":{"scene_cycle_extended":{"repeat_timeout":{"seconds":3},
	      "slots":[[{"action":{"recall":{"rid":"s-read","rtype":"scene"}}}],[{"action":{"recall":{"rid":"s-relax","rtype":"scene"}}}]],
	      "with_off":{"enabled":false}}}},
	    "button2":{"on_short_release":{"recall_single_extended":{"actions":[{"action":{"recall":{"rid":"s-night","rtype":"scene"}}}]}}},
	    "button3":{"on_repeat":{"action":"dim_up"}},
	    "button4":{"on_repeat":{"action":"dim_down"},"on_long_press":{"action":"all_off"}}
	  }}`,
	`{"id":"bi-office","type":"behavior_instance","script_id":"67d9395b-4403-42cc-b5f0-740b699d67c6","enabled":true,
	  "metadata":{"name":"Office dimmer"},"status":"running",
	  "configuration":{
	    "device":{"rid":"d-office-switch","rtype":"device"},
	    "buttons":{
	      "ob-1":{"on_short_release":{"time_based_extended":{"repeat_timeout":{"seconds":3},
	        "slots":[{"start_time":{"hour":7,"minute":0},"actions":[{"action":{"recall":{"rid":"s-office","rtype":"scene"}}}]}],
	        "with_off":{"enabled":true}}}},
	      "ob-2":{"on_repeat":{"action":"dim_up"}}
	    }
	  }}`,
}
