// Copyright 2025 ClassBlogs
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*
Package logger provides structured JSON logging with per-tenant context for
ClassBlogs network services.

# Overview

The logger writes one JSON object per line to stdout, making log output
directly consumable by whatever aggregation stack the hosting institution
runs.

Each log entry includes:
  - Timestamp (RFC3339Nano format)
  - Log level (DEBUG, INFO, WARN, ERROR)
  - Component name (registry, aggregator, admin, etc.)
  - Instance ID and container name
  - Tenant ID (which blog on the network the entry concerns, if any)
  - Request ID (for request correlation)

# Usage

	log := logger.New("aggregator")
	log.Info(tenantID, requestID, "tenant scan complete", map[string]interface{}{
		"posts": 42,
	})

Recoverable per-tenant failures during network aggregation are logged with
WarnWithError so a single unreachable blog never aborts a scan.
*/
package logger
