// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package activitydb

const activityTableSchema = `
create table if not exists activity (
	seq integer primary key autoincrement,
	id text not null unique,
	op text not null,
	participant blob(20),
	blockNumber integer,
	epoch integer,
	amount blob,
	reward blob
);

CREATE INDEX if not exists activityParticipantIndex on activity(participant);
CREATE INDEX if not exists activityBlockNumberIndex on activity(blockNumber);
`
