// Package hcl_adapter reads and writes chain definitions in HCL.
//
//	name      = "billing.monthly"
//	done      = "notify"
//	namespace = "App.Jobs"
//	lifetime  = "2h"
//
//	channel {
//	  visibility = "private"
//	  route      = "users.{user}"
//	}
//
//	job "fetch" {
//	  type   = "Fetch"
//	  params = {
//	    url  = param("url", "https://example.com")
//	    mode = param.mode
//	  }
//	}
//
//	job "notify" {
//	  type   = "Notify"
//	  params = {
//	    status = job.fetch.status_code
//	    first  = job("fetch.items.0")
//	  }
//	}
//
// Placeholders are recognised syntactically while parsing and never
// evaluated; every other expression must be a constant.
package hcl_adapter
