package graph

import (
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ParseKind", func() {
	It("resolves canonical names", func() {
		for _, kind := range Kinds() {
			parsed, err := ParseKind(string(kind))
			Expect(err).NotTo(HaveOccurred())
			Expect(parsed).To(Equal(kind))
		}
	})

	It("resolves aliases", func() {
		cases := map[string]Kind{
			"servers":          KindServer,
			"app":              KindApplication,
			"apps":             KindApplication,
			"applications":     KindApplication,
			"oses":             KindOS,
			"operating_system": KindOS,
			"locations":        KindLocation,
		}
		for alias, want := range cases {
			parsed, err := ParseKind(alias)
			Expect(err).NotTo(HaveOccurred())
			Expect(parsed).To(Equal(want))
		}
	})

	It("rejects unknown kinds with a NotFoundError", func() {
		_, err := ParseKind("datacenter")
		var notFound NotFoundError
		Expect(errors.As(err, &notFound)).To(BeTrue())
	})
})

var _ = Describe("errors", func() {
	It("formats a missing entity", func() {
		err := NotFoundError{Kind: KindServer, ID: "server9"}
		Expect(err.Error()).To(ContainSubstring("server9"))
	})

	It("unwraps the upstream cause", func() {
		cause := fmt.Errorf("connection refused")
		err := UpstreamError{Op: "summary", Err: cause}
		Expect(errors.Unwrap(err)).To(Equal(cause))
	})
})
