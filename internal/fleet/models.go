package fleet

type Stop struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

type Route struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Stops []Stop `json:"stops"`
}

type Vehicle struct {
	ID        string `json:"id"`
	VanNumber string `json:"van_number"`
	RouteID   string `json:"route_id,omitempty"`
	Capacity  int    `json:"capacity"`
}
