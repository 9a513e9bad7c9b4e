/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage persists proposal sections behind the SectionStore interface.
// A section row holds its title, its position within the proposal (order_index)
// and the element list as JSON.
//
// Four backends are provided: an embedded SQLite database (WAL, versioned schema),
// PostgreSQL through the pgx driver with embedded migrations, a per-proposal JSON
// document on disk with transactional writes and timestamped backups, and an
// in-memory store used by tests and demos.
package storage
