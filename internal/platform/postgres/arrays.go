package postgres

import (
	"github.com/lib/pq"

	id "clientpulse/pkg/domain"
)

// ClientIDArray encodes ids as a uuid[] parameter. An empty slice encodes as
// NULL so queries can treat it as "no filter":
//
//	WHERE ($1::uuid[] IS NULL OR client_id = ANY($1::uuid[]))
func ClientIDArray(ids []id.ClientID) any {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, cid := range ids {
		out[i] = cid.String()
	}
	return pq.Array(out)
}
