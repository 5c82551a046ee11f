// Package testutils holds helpers shared by the integration tests.
//
// MockEndpointBuilder describes a mock Sentry API endpoint; MockEndpoint
// registers it on a mockhttp.Server for the duration of a test:
//
//	srv := testutils.NewServer(t)
//	mock := testutils.MockEndpoint(t, srv,
//		testutils.New("GET", "/api/0/projects/acme/web/files/dsyms/", 200).
//			WithResponseFile("debug_files/list_empty.json"))
//
// Response files live under ResponsesDir next to the test package.
package testutils
