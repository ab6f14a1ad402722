// Package yaml_adapter reads and writes chain definitions in YAML.
//
//	done: notify
//	namespace: App.Jobs
//	lifetime: 7200
//	channels:
//	  - route: users.{user}
//	jobs:
//	  fetch:
//	    type: Fetch
//	    params:
//	      url: !param url https://example.com
//	  notify:
//	    type: Notify
//	    params:
//	      status: !job fetch.status_code
//
// Jobs keep the order they are written in. The !param tag takes an input
// name and an optional default; the !job tag takes a job id and an optional
// dotted path into its response.
package yaml_adapter
