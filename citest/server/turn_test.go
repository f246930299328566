package server_test

import (
	"net/http"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/parley-ai/parley/citest/testutil"
)

var _ = Describe("Turn streaming", func() {
	var ts *testutil.TestServer
	var client *testutil.TestClient

	startWith := func(p *testutil.ScriptedProvider) {
		var err error
		ts, err = testutil.StartTestServer(p, "")
		Expect(err).NotTo(HaveOccurred())
		client = ts.Client()
	}

	AfterEach(func() {
		if ts != nil {
			ts.Close()
			ts = nil
		}
	})

	Describe("POST /session/{sessionID}/turn", func() {
		It("streams fragments in order and persists the turn", func() {
			startWith(testutil.NewScriptedProvider("Once", " upon", " a time"))

			session, status, err := client.CreateSession("Story time", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(http.StatusCreated))

			fragments, status, err := client.RunTurn(session.ID, "Tell me a story")
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(http.StatusOK))
			Expect(fragments).To(Equal([]string{"Once", " upon", " a time"}))

			stored, status, err := client.GetSession(session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(http.StatusOK))
			Expect(stored.Messages).To(HaveLen(2))
			Expect(string(stored.Messages[0].Role)).To(Equal("user"))
			Expect(stored.Messages[0].Content).To(Equal("Tell me a story"))
			Expect(string(stored.Messages[1].Role)).To(Equal("assistant"))
			Expect(stored.Messages[1].Content).To(Equal("Once upon a time"))
		})

		It("keeps history across turns", func() {
			startWith(testutil.NewScriptedProvider("reply"))

			session, _, err := client.CreateSession("Long chat", "")
			Expect(err).NotTo(HaveOccurred())

			_, _, err = client.RunTurn(session.ID, "first")
			Expect(err).NotTo(HaveOccurred())
			_, _, err = client.RunTurn(session.ID, "second")
			Expect(err).NotTo(HaveOccurred())

			stored, _, err := client.GetSession(session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Messages).To(HaveLen(4))
		})

		It("ends with an apology and persists nothing when the stream fails", func() {
			p := testutil.NewScriptedProvider("Hel", "lo")
			p.FailAfter = 1
			startWith(p)

			session, _, err := client.CreateSession("Doomed", "")
			Expect(err).NotTo(HaveOccurred())

			fragments, status, err := client.RunTurn(session.ID, "hello")
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(http.StatusOK))
			Expect(fragments).To(HaveLen(2))
			Expect(fragments[0]).To(Equal("Hel"))
			Expect(fragments[1]).To(ContainSubstring("Sorry"))

			stored, _, err := client.GetSession(session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Messages).To(BeEmpty())
		})

		It("returns 404 for an unknown session", func() {
			startWith(testutil.NewScriptedProvider("hi"))

			_, status, err := client.RunTurn("01UNKNOWNSESSIONID", "hello")
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(http.StatusNotFound))
		})
	})

	Describe("authenticated access", func() {
		It("walks the login and session flow with a configured secret", func() {
			var err error
			ts, err = testutil.StartTestServer(testutil.NewScriptedProvider("ok"), "citest-secret")
			Expect(err).NotTo(HaveOccurred())
			client = ts.Client()

			// No token yet.
			_, status, err := client.ListSessions()
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(http.StatusUnauthorized))

			result, status, err := client.Login("grace@example.com", "Grace", "Hopper")
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(http.StatusOK))
			Expect(result.Token).NotTo(BeEmpty())
			Expect(result.User.Email).To(Equal("grace@example.com"))

			session, status, err := client.CreateSession("Authenticated chat", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(http.StatusCreated))
			Expect(session.Owner).To(Equal(result.User.ID))

			fragments, status, err := client.RunTurn(session.ID, "hello")
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(http.StatusOK))
			Expect(strings.Join(fragments, "")).To(Equal("ok"))

			status, err = client.DeleteSession(session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(http.StatusOK))
		})
	})
})
