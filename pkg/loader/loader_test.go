package loader

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opsgraph/opsgraph/pkg/logger"
)

// recordingExecer captures every write the loader issues.
type recordingExecer struct {
	writes []write
	err    error
}

type write struct {
	query  string
	params map[string]any
}

func (r *recordingExecer) ExecWrite(_ context.Context, query string, params map[string]any) error {
	r.writes = append(r.writes, write{query: query, params: params})
	return r.err
}

func (r *recordingExecer) queriesContaining(substr string) []write {
	var out []write
	for _, w := range r.writes {
		if strings.Contains(w.query, substr) {
			out = append(out, w)
		}
	}
	return out
}

func writeCSV(dir, name, content string) {
	Expect(os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600)).To(Succeed())
}

var _ = Describe("Loader", func() {
	var (
		dir    string
		exec   *recordingExecer
		loader *Loader
		ctx    context.Context
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		exec = &recordingExecer{}
		loader = NewLoader(exec, dir, logger.NewLogger(false))
		ctx = context.Background()

		writeCSV(dir, "servers.csv", "id,name\nserver1,web-frontend\nserver2,db-primary\n")
		writeCSV(dir, "applications.csv", "id,name\ncrm,CRM\n")
		writeCSV(dir, "oses.csv", "id,name\nubuntu,Ubuntu 22.04\n")
		writeCSV(dir, "runs_on.csv", "start,end\nserver1,ubuntu\nserver2,ubuntu\n")
		writeCSV(dir, "hosts.csv", "start,end\nserver1,crm\n")
		writeCSV(dir, "located_in.csv", "start,end\nserver1,loc2\nserver2,loc1\nserver1,loc2\n")
	})

	It("clears, constrains, and loads nodes before relationships", func() {
		Expect(loader.LoadAll(ctx, true)).To(Succeed())

		Expect(exec.writes[0].query).To(ContainSubstring("DETACH DELETE"))

		var order []string
		for _, w := range exec.writes {
			switch {
			case strings.Contains(w.query, "MERGE (s:Server {id: row.id})"):
				order = append(order, "server-nodes")
			case strings.Contains(w.query, ":RUNS_ON"):
				order = append(order, "runs-on")
			}
		}
		Expect(order).To(Equal([]string{"server-nodes", "runs-on"}))
	})

	It("skips the clear when asked to keep existing data", func() {
		Expect(loader.LoadAll(ctx, false)).To(Succeed())
		Expect(exec.queriesContaining("DETACH DELETE")).To(BeEmpty())
	})

	It("creates a uniqueness constraint per label", func() {
		Expect(loader.LoadAll(ctx, false)).To(Succeed())
		Expect(exec.queriesContaining("CREATE CONSTRAINT")).To(HaveLen(4))
	})

	It("passes CSV rows through as query parameters", func() {
		Expect(loader.LoadAll(ctx, false)).To(Succeed())

		serverWrites := exec.queriesContaining("MERGE (s:Server {id: row.id})")
		Expect(serverWrites).To(HaveLen(1))
		rows := serverWrites[0].params["rows"].([]map[string]any)
		Expect(rows).To(HaveLen(2))
		Expect(rows[0]).To(HaveKeyWithValue("id", "server1"))
		Expect(rows[0]).To(HaveKeyWithValue("name", "web-frontend"))
	})

	It("derives sorted, deduplicated locations from located_in endpoints", func() {
		Expect(loader.LoadAll(ctx, false)).To(Succeed())

		locWrites := exec.queriesContaining("MERGE (l:Location {id: id})")
		Expect(locWrites).To(HaveLen(1))
		Expect(locWrites[0].params["ids"]).To(Equal([]string{"loc1", "loc2"}))
	})

	It("fails when a CSV is missing", func() {
		Expect(os.Remove(filepath.Join(dir, "hosts.csv"))).To(Succeed())
		Expect(loader.LoadAll(ctx, false)).NotTo(Succeed())
	})
})
